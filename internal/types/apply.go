package types

// Apply returns the task list that results from performing a on tasks.
// The input slice is not modified.
//
//   - add inserts the payload, replacing a task with the same id in place
//   - update and toggle patch the task with the action's id
//   - delete removes the task with the action's id
//
// Actions that reference an unknown id leave the list unchanged.
func Apply(tasks []Task, a PendingAction) []Task {
	out := CloneTasks(tasks)

	switch a.Kind {
	case ActionAdd:
		if a.Task == nil {
			return out
		}
		if i := FindTask(out, a.TaskID); i >= 0 {
			out[i] = a.Task.Clone()
			return out
		}
		return append(out, a.Task.Clone())

	case ActionUpdate, ActionToggle:
		if a.Patch == nil {
			return out
		}
		if i := FindTask(out, a.TaskID); i >= 0 {
			out[i] = a.Patch.ApplyTo(out[i])
		}
		return out

	case ActionDelete:
		filtered := out[:0]
		for _, t := range out {
			if t.ID != a.TaskID {
				filtered = append(filtered, t)
			}
		}
		return filtered
	}

	return out
}

// ApplyAll folds actions over tasks in order.
func ApplyAll(tasks []Task, actions []PendingAction) []Task {
	out := CloneTasks(tasks)
	for _, a := range actions {
		out = Apply(out, a)
	}
	return out
}
