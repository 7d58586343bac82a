// Package memory provides the in-memory instance DAO used by default.
package memory

import (
	"context"

	"github.com/modflow/modflow/runtime/execution"
	"github.com/modflow/modflow/service/dao"
	"github.com/modflow/modflow/service/dao/store"
)

// Service stores workflow instances in memory.
type Service struct {
	*store.MemoryStore[string, execution.Instance]
}

// New creates an in-memory instance DAO.
func New() *Service {
	return &Service{
		MemoryStore: store.NewMemoryStore[string, execution.Instance](func(i *execution.Instance) string {
			return i.ID
		}),
	}
}

// List returns instances, filtered by the optional "status", "workflowId"
// and "studyId" criteria.
func (s *Service) List(ctx context.Context, parameters ...*dao.Parameter) ([]*execution.Instance, error) {
	instances, err := s.MemoryStore.List(ctx)
	if err != nil {
		return nil, err
	}
	if len(parameters) == 0 {
		return instances, nil
	}
	var filtered []*execution.Instance
	for _, instance := range instances {
		if matches(instance, parameters) {
			filtered = append(filtered, instance)
		}
	}
	return filtered, nil
}

func matches(instance *execution.Instance, parameters []*dao.Parameter) bool {
	for _, parameter := range parameters {
		value, _ := parameter.Value.(string)
		switch parameter.Name {
		case "status":
			if string(instance.GetStatus()) != value {
				return false
			}
		case "workflowId":
			if instance.WorkflowID != value {
				return false
			}
		case "studyId":
			if instance.Session == nil || instance.Session.StudyID != value {
				return false
			}
		}
	}
	return true
}
