package views_test

import (
	"fmt"
	"time"

	"github.com/honesthomesales/TODO/internal/types"
	"github.com/honesthomesales/TODO/internal/views"
)

func ExampleGroupByPriority() {
	tasks := []types.Task{
		{ID: "1", Text: "Water plants", Priority: types.PriorityLow, Status: types.StatusTodo},
		{ID: "2", Text: "Call plumber", Priority: types.PriorityHigh, Status: types.StatusTodo, DueDate: types.NewDate(2024, time.June, 3)},
		{ID: "3", Text: "Pay rent", Priority: types.PriorityHigh, Status: types.StatusTodo, DueDate: types.NewDate(2024, time.June, 1)},
	}

	for _, g := range views.GroupByPriority(tasks) {
		fmt.Println(g.Title)
		for _, t := range g.Tasks {
			fmt.Println("  " + t.Text)
		}
	}
	// Output:
	// High Priority
	//   Pay rent
	//   Call plumber
	// Low Priority
	//   Water plants
}
