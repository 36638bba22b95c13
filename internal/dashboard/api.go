package dashboard

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"github.com/honesthomesales/TODO/internal/syncqueue"
	"github.com/honesthomesales/TODO/internal/tasks"
	"github.com/honesthomesales/TODO/internal/types"
	"github.com/honesthomesales/TODO/internal/views"
)

// Facade is what the dashboard needs from the task service.
type Facade interface {
	Tasks() []types.Task
	Pending() []types.PendingAction
	Online() bool
	Resolve(ref string) (string, error)
	Add(ctx context.Context, d tasks.Draft) (types.Task, error)
	Update(ctx context.Context, id string, patch types.TaskPatch) (types.Task, error)
	Toggle(ctx context.Context, id string) (types.Task, error)
	Remove(ctx context.Context, id string) error
	Move(ctx context.Context, id string, dir views.Direction) error
	Sync(ctx context.Context) (syncqueue.Result, error)
	Members() *tasks.Members
}

type createTaskRequest struct {
	Text     string         `json:"text"`
	DueDate  types.Date     `json:"due_date"`
	Priority types.Priority `json:"priority"`
	Assignee *string        `json:"assignee"`
}

type moveRequest struct {
	Direction string `json:"direction"`
}

// taskView is a task plus the derived fields the UI colors by.
type taskView struct {
	types.Task
	DueState      views.DueState `json:"due_state"`
	DueColor      string         `json:"due_color"`
	AssigneeColor string         `json:"assignee_color"`
}

type groupView struct {
	Key   string     `json:"key"`
	Title string     `json:"title"`
	Tasks []taskView `json:"tasks"`
}

type tasksResponse struct {
	View   views.View  `json:"view"`
	Groups []groupView `json:"groups"`
	Online bool        `json:"online"`
}

type queueResponse struct {
	Length  int                   `json:"length"`
	Actions []types.PendingAction `json:"actions"`
}

type syncResponse struct {
	syncqueue.Result
	Error string `json:"error,omitempty"`
}

func registerAPI(e *echo.Echo, f Facade, logger *log.Entry) {
	e.GET("/api/tasks", getTasks(f))
	e.POST("/api/tasks", createTask(f))
	e.PATCH("/api/tasks/:id", updateTask(f))
	e.DELETE("/api/tasks/:id", deleteTask(f))
	e.POST("/api/tasks/:id/toggle", toggleTask(f))
	e.POST("/api/tasks/:id/move", moveTask(f))
	e.GET("/api/queue", getQueue(f))
	e.GET("/api/members", getMembers(f))
	e.POST("/api/sync", postSync(f, logger))
}

// httpError maps facade errors onto status codes.
func httpError(err error) error {
	switch {
	case errors.Is(err, types.ErrInvalid):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, types.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, types.ErrOffline):
		return echo.NewHTTPError(http.StatusServiceUnavailable, err.Error())
	}
	return echo.NewHTTPError(http.StatusInternalServerError, err.Error()).SetInternal(err)
}

func getTasks(f Facade) echo.HandlerFunc {
	return func(c echo.Context) error {
		view, err := views.ParseView(c.QueryParam("view"))
		if err != nil {
			return httpError(err)
		}
		members := f.Members().Cached()
		groups, err := views.Build(view, f.Tasks(), members)
		if err != nil {
			return httpError(err)
		}

		today := types.Today()
		resp := tasksResponse{View: view, Online: f.Online(), Groups: make([]groupView, 0, len(groups))}
		for _, g := range groups {
			gv := groupView{Key: g.Key, Title: g.Title, Tasks: make([]taskView, 0, len(g.Tasks))}
			for _, t := range g.Tasks {
				state := views.DueStateOf(t, today)
				gv.Tasks = append(gv.Tasks, taskView{
					Task:          t,
					DueState:      state,
					DueColor:      state.Color(),
					AssigneeColor: views.AssigneeColor(t, members),
				})
			}
			resp.Groups = append(resp.Groups, gv)
		}
		return c.JSON(http.StatusOK, resp)
	}
}

func createTask(f Facade) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req createTaskRequest
		if err := c.Bind(&req); err != nil {
			return err
		}
		task, err := f.Add(c.Request().Context(), tasks.Draft{
			Text:     req.Text,
			DueDate:  req.DueDate,
			Priority: req.Priority,
			Assignee: req.Assignee,
		})
		if err != nil {
			return httpError(err)
		}
		return c.JSON(http.StatusCreated, task)
	}
}

func resolve(f Facade, c echo.Context) (string, error) {
	id, err := f.Resolve(c.Param("id"))
	if err != nil {
		return "", httpError(err)
	}
	return id, nil
}

func updateTask(f Facade) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := resolve(f, c)
		if err != nil {
			return err
		}
		var patch types.TaskPatch
		if err := c.Bind(&patch); err != nil {
			return err
		}
		task, err := f.Update(c.Request().Context(), id, patch)
		if err != nil {
			return httpError(err)
		}
		return c.JSON(http.StatusOK, task)
	}
}

func deleteTask(f Facade) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := resolve(f, c)
		if err != nil {
			return err
		}
		if err := f.Remove(c.Request().Context(), id); err != nil {
			return httpError(err)
		}
		return c.NoContent(http.StatusNoContent)
	}
}

func toggleTask(f Facade) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := resolve(f, c)
		if err != nil {
			return err
		}
		task, err := f.Toggle(c.Request().Context(), id)
		if err != nil {
			return httpError(err)
		}
		return c.JSON(http.StatusOK, task)
	}
}

func moveTask(f Facade) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := resolve(f, c)
		if err != nil {
			return err
		}
		var req moveRequest
		if err := c.Bind(&req); err != nil {
			return err
		}
		dir, err := views.ParseDirection(req.Direction)
		if err != nil {
			return httpError(err)
		}
		if err := f.Move(c.Request().Context(), id, dir); err != nil {
			return httpError(err)
		}
		return c.NoContent(http.StatusNoContent)
	}
}

func getQueue(f Facade) echo.HandlerFunc {
	return func(c echo.Context) error {
		pending := f.Pending()
		return c.JSON(http.StatusOK, queueResponse{Length: len(pending), Actions: pending})
	}
}

func getMembers(f Facade) echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.JSON(http.StatusOK, f.Members().List(c.Request().Context()))
	}
}

func postSync(f Facade, logger *log.Entry) echo.HandlerFunc {
	return func(c echo.Context) error {
		res, err := f.Sync(c.Request().Context())
		if errors.Is(err, types.ErrOffline) {
			return httpError(err)
		}
		resp := syncResponse{Result: res}
		if err != nil {
			logger.WithError(err).Warn("sync requested from dashboard did not complete")
			resp.Error = err.Error()
		}
		return c.JSON(http.StatusOK, resp)
	}
}
