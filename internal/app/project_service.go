package app

import (
	"strings"

	"tasktracker/internal/model"
	"tasktracker/internal/repository"
)

type ProjectService struct {
	projectRepo *repository.ProjectRepository
}

// ProjectView is a project with a summary of each of its tasks.
type ProjectView struct {
	ID    uint          `json:"id"`
	Name  string        `json:"name"`
	Tasks []TaskSummary `json:"tasks"`
}

type TaskSummary struct {
	ID     uint   `json:"id"`
	Name   string `json:"name"`
	Author string `json:"author"`
}

func NewProjectService(projectRepo *repository.ProjectRepository) *ProjectService {
	return &ProjectService{projectRepo: projectRepo}
}

func (s *ProjectService) Create(name string) (*model.Project, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrMissingFields
	}

	project := &model.Project{Name: name}
	if err := s.projectRepo.Create(project); err != nil {
		return nil, err
	}
	return project, nil
}

func (s *ProjectService) List() ([]ProjectView, error) {
	projects, err := s.projectRepo.List()
	if err != nil {
		return nil, err
	}

	views := make([]ProjectView, 0, len(projects))
	for i := range projects {
		views = append(views, toProjectView(&projects[i]))
	}
	return views, nil
}

func (s *ProjectService) Get(id uint) (*ProjectView, error) {
	if id == 0 {
		return nil, ErrInvalidInput
	}
	project, err := s.projectRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if project == nil {
		return nil, ErrProjectNotFound
	}
	view := toProjectView(project)
	return &view, nil
}

func (s *ProjectService) Rename(id uint, name string) (*model.Project, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrMissingFields
	}
	if id == 0 {
		return nil, ErrInvalidInput
	}

	project, err := s.projectRepo.Rename(id, name)
	if err != nil {
		return nil, err
	}
	if project == nil {
		return nil, ErrProjectNotFound
	}
	return project, nil
}

// Delete removes the project together with its tasks.
func (s *ProjectService) Delete(id uint) error {
	if id == 0 {
		return ErrInvalidInput
	}
	deleted, err := s.projectRepo.DeleteWithTasks(id)
	if err != nil {
		return err
	}
	if !deleted {
		return ErrProjectNotFound
	}
	return nil
}

func toProjectView(project *model.Project) ProjectView {
	tasks := make([]TaskSummary, 0, len(project.Tasks))
	for _, task := range project.Tasks {
		summary := TaskSummary{ID: task.ID, Name: task.Name}
		if task.User != nil {
			summary.Author = task.User.Name
		}
		tasks = append(tasks, summary)
	}
	return ProjectView{
		ID:    project.ID,
		Name:  project.Name,
		Tasks: tasks,
	}
}
