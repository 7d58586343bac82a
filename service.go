// Package modflow assembles the study module registry, the workflow
// registry, the execution engine and the event bus into a single service.
package modflow

import (
	"github.com/modflow/modflow/extension"
	"github.com/modflow/modflow/model/types"
	"github.com/modflow/modflow/runtime/execution"
	"github.com/modflow/modflow/service/approval"
	apmemory "github.com/modflow/modflow/service/approval/memory"
	"github.com/modflow/modflow/service/audit"
	auditfs "github.com/modflow/modflow/service/audit/fs"
	audmemory "github.com/modflow/modflow/service/audit/memory"
	"github.com/modflow/modflow/service/dao"
	imemory "github.com/modflow/modflow/service/dao/instance/memory"
	"github.com/modflow/modflow/service/engine"
	"github.com/modflow/modflow/service/event"
	"github.com/modflow/modflow/service/module"
	"github.com/modflow/modflow/service/module/builtin/execbridge"
	"github.com/modflow/modflow/service/module/builtin/nop"
	"github.com/modflow/modflow/service/module/builtin/redline"
	"github.com/modflow/modflow/service/module/builtin/textract"
	"github.com/modflow/modflow/service/registry"
	"github.com/modflow/modflow/service/secret"
	"github.com/modflow/modflow/service/workflow"

	"github.com/viant/x"
)

// Service represents the modflow service.
type Service struct {
	runtime *Runtime

	config         *Config
	workflows      *workflow.Service
	modules        *module.Manager
	instanceDAO    dao.Service[string, execution.Instance]
	approvals      approval.Service
	auditor        audit.Service
	types          *extension.Types
	services       *registry.Services
	engineOptions  []engine.Option
	moduleOptions  []module.Option
	registrations  []module.Registration
	execEnv        map[string]string
	noBuiltin      bool
	definitionURLs []string
}

func (s *Service) init(options []Option) {
	for _, option := range options {
		option(s)
	}
	s.ensureBaseSetup()
	s.runtime = &Runtime{
		workflows:   s.workflows,
		modules:     s.modules,
		instanceDAO: s.instanceDAO,
		approvals:   s.approvals,
		auditor:     s.auditor,
	}
	s.runtime.engine = engine.New(s.workflows, s.modules, s.instanceDAO, s.approvals, s.auditor, s.types, s.engineOptions...)
	s.runtime.events = event.New(s.workflows)
	s.runtime.events.SetStarter(s.runtime.engine)
	s.runtime.definitionURLs = s.definitionURLs
	if !s.noBuiltin {
		s.registerBuiltin()
	}
	for _, registration := range s.registrations {
		_ = s.modules.Register(registration.Descriptor, registration.Handler)
	}
}

func (s *Service) ensureBaseSetup() {
	if s.config == nil {
		s.config = DefaultConfig()
	}
	if s.workflows == nil {
		s.workflows = workflow.New()
	}
	if s.modules == nil {
		opts := s.moduleOptions
		if timeout := s.config.Module.executeTimeout(); timeout > 0 {
			opts = append([]module.Option{module.WithExecuteTimeout(timeout)}, opts...)
		}
		s.modules = module.New(opts...)
	}
	if s.instanceDAO == nil {
		s.instanceDAO = imemory.New()
	}
	if s.approvals == nil {
		s.approvals = apmemory.New()
	}
	if s.auditor == nil {
		if s.config.Audit.BaseURL != "" {
			s.auditor = auditfs.New(s.config.Audit.BaseURL)
		} else {
			s.auditor = audmemory.New()
		}
	}
	if s.types == nil {
		s.types = extension.NewTypes()
	}
	if s.services == nil {
		s.services = &registry.Services{
			Audit:   s.auditor,
			Secrets: secret.New(),
			Cache:   registry.NewMemoryCache(),
		}
		if s.config.Documents.BaseURL != "" {
			s.services.Documents = registry.NewFsDocumentStore(s.config.Documents.BaseURL)
		}
	}
	s.engineOptions = append(s.engineOptions, engine.WithServices(s.services))
	if frequency := s.config.Engine.pollFrequency(); frequency > 0 {
		s.engineOptions = append([]engine.Option{engine.WithPollFrequency(frequency)}, s.engineOptions...)
	}
	if timeout := s.config.Engine.stepTimeout(); timeout > 0 {
		s.engineOptions = append([]engine.Option{engine.WithDefaultStepTimeout(timeout)}, s.engineOptions...)
	}
}

func (s *Service) registerBuiltin() {
	aNop := nop.New()
	_ = s.modules.Register(aNop.Descriptor(), aNop)
	extract := textract.New(nil)
	_ = s.modules.Register(extract.Descriptor(), extract)
	diff := redline.New()
	_ = s.modules.Register(diff.Descriptor(), diff)
	bridge := execbridge.New(s.execEnv)
	_ = s.modules.Register(bridge.Descriptor(), bridge)
}

// RegisterModule adds a module to the registry.
func (s *Service) RegisterModule(descriptor *types.Descriptor, handler types.Handler) error {
	return s.modules.Register(descriptor, handler)
}

// RegisterTypes registers extension types used for input and output
// coercion.
func (s *Service) RegisterTypes(extensionTypes ...*x.Type) {
	for i := range extensionTypes {
		s.types.Register(extensionTypes[i])
	}
}

// Services returns the cross-cutting service bundle exposed to modules.
func (s *Service) Services() *registry.Services {
	return s.services
}

// Runtime returns the assembled runtime.
func (s *Service) Runtime() *Runtime {
	return s.runtime
}

// New creates a modflow service.
func New(options ...Option) *Service {
	ret := &Service{}
	ret.init(options)
	return ret
}
