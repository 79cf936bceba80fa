package app

import (
	"strings"

	"tasktracker/internal/model"
	"tasktracker/internal/repository"
)

type TaskService struct {
	taskRepo    *repository.TaskRepository
	projectRepo *repository.ProjectRepository
}

type CreateTaskInput struct {
	UserID    uint
	ProjectID uint
	Name      string
}

// TaskView is a task with the names of its author and project.
type TaskView struct {
	ID        uint     `json:"id"`
	Name      string   `json:"name"`
	ProjectID uint     `json:"project_id"`
	UserID    uint     `json:"user_id"`
	User      NameView `json:"user"`
	Project   NameView `json:"project"`
}

type NameView struct {
	Name string `json:"name"`
}

func NewTaskService(taskRepo *repository.TaskRepository, projectRepo *repository.ProjectRepository) *TaskService {
	return &TaskService{
		taskRepo:    taskRepo,
		projectRepo: projectRepo,
	}
}

func (s *TaskService) Create(input CreateTaskInput) (*model.Task, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" || input.ProjectID == 0 {
		return nil, ErrMissingFields
	}
	if input.UserID == 0 {
		return nil, ErrInvalidInput
	}

	exists, err := s.projectRepo.Exists(input.ProjectID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrProjectNotFound
	}

	task := &model.Task{
		Name:      name,
		ProjectID: input.ProjectID,
		UserID:    input.UserID,
	}
	if err := s.taskRepo.Create(task); err != nil {
		return nil, err
	}
	return task, nil
}

func (s *TaskService) List() ([]TaskView, error) {
	tasks, err := s.taskRepo.List()
	if err != nil {
		return nil, err
	}

	views := make([]TaskView, 0, len(tasks))
	for i := range tasks {
		views = append(views, toTaskView(&tasks[i]))
	}
	return views, nil
}

func (s *TaskService) Get(id uint) (*TaskView, error) {
	if id == 0 {
		return nil, ErrInvalidInput
	}
	task, err := s.taskRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if task == nil {
		return nil, ErrTaskNotFound
	}
	view := toTaskView(task)
	return &view, nil
}

func (s *TaskService) Rename(id uint, name string) (*model.Task, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrMissingFields
	}
	if id == 0 {
		return nil, ErrInvalidInput
	}

	task, err := s.taskRepo.Rename(id, name)
	if err != nil {
		return nil, err
	}
	if task == nil {
		return nil, ErrTaskNotFound
	}
	return task, nil
}

func (s *TaskService) Delete(id uint) error {
	if id == 0 {
		return ErrInvalidInput
	}
	deleted, err := s.taskRepo.Delete(id)
	if err != nil {
		return err
	}
	if !deleted {
		return ErrTaskNotFound
	}
	return nil
}

func toTaskView(task *model.Task) TaskView {
	view := TaskView{
		ID:        task.ID,
		Name:      task.Name,
		ProjectID: task.ProjectID,
		UserID:    task.UserID,
	}
	if task.User != nil {
		view.User.Name = task.User.Name
	}
	if task.Project != nil {
		view.Project.Name = task.Project.Name
	}
	return view
}
