package modflow

import (
	"github.com/modflow/modflow/extension"
	"github.com/modflow/modflow/model/types"
	"github.com/modflow/modflow/runtime/execution"
	"github.com/modflow/modflow/service/approval"
	"github.com/modflow/modflow/service/audit"
	"github.com/modflow/modflow/service/dao"
	"github.com/modflow/modflow/service/engine"
	"github.com/modflow/modflow/service/module"
	"github.com/modflow/modflow/service/registry"
	"github.com/modflow/modflow/service/workflow"
	"github.com/modflow/modflow/tracing"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// Option customizes the service.
type Option func(s *Service)

// WithConfig supplies a configuration, overriding package defaults.
func WithConfig(config *Config) Option {
	return func(s *Service) {
		s.config = config
	}
}

// WithWorkflowService sets the workflow registry.
func WithWorkflowService(svc *workflow.Service) Option {
	return func(s *Service) {
		s.workflows = svc
	}
}

// WithModuleManager sets the module manager.
func WithModuleManager(manager *module.Manager) Option {
	return func(s *Service) {
		s.modules = manager
	}
}

// WithInstanceDAO sets the workflow instance DAO.
func WithInstanceDAO(dao dao.Service[string, execution.Instance]) Option {
	return func(s *Service) {
		s.instanceDAO = dao
	}
}

// WithApprovalService sets the approval service.
func WithApprovalService(svc approval.Service) Option {
	return func(s *Service) {
		s.approvals = svc
	}
}

// WithAuditService sets the audit sink.
func WithAuditService(svc audit.Service) Option {
	return func(s *Service) {
		s.auditor = svc
	}
}

// WithExtensionTypes sets the type registry used for input and output
// coercion.
func WithExtensionTypes(extensionTypes *extension.Types) Option {
	return func(s *Service) {
		s.types = extensionTypes
	}
}

// WithServices replaces the cross-cutting service bundle module handlers
// receive through the invocation context.
func WithServices(services *registry.Services) Option {
	return func(s *Service) {
		s.services = services
	}
}

// WithExternalResolver wires "service" input sources and output targets to
// an external system.
func WithExternalResolver(resolver engine.ExternalResolver) Option {
	return func(s *Service) {
		s.engineOptions = append(s.engineOptions, engine.WithExternalResolver(resolver))
	}
}

// WithEngineOptions passes additional options to the engine constructor.
func WithEngineOptions(options ...engine.Option) Option {
	return func(s *Service) {
		s.engineOptions = append(s.engineOptions, options...)
	}
}

// WithModuleOptions passes additional options to the module manager
// constructor.
func WithModuleOptions(options ...module.Option) Option {
	return func(s *Service) {
		s.moduleOptions = append(s.moduleOptions, options...)
	}
}

// WithModule registers a module during service assembly.
func WithModule(descriptor *types.Descriptor, handler types.Handler) Option {
	return func(s *Service) {
		s.registrations = append(s.registrations, module.Registration{Descriptor: descriptor, Handler: handler})
	}
}

// WithoutBuiltinModules skips registration of the bundled modules.
func WithoutBuiltinModules() Option {
	return func(s *Service) {
		s.noBuiltin = true
	}
}

// WithExecEnvironment sets environment variables passed to the exec-bridge
// module.
func WithExecEnvironment(env map[string]string) Option {
	return func(s *Service) {
		s.execEnv = env
	}
}

// WithDefinitionURLs lists workflow definition locations loaded on runtime
// start.
func WithDefinitionURLs(URLs ...string) Option {
	return func(s *Service) {
		s.definitionURLs = append(s.definitionURLs, URLs...)
	}
}

// WithTracing configures OpenTelemetry tracing for the service. If
// outputFile is empty the stdout exporter is used, otherwise traces are
// written to the supplied file path. Safe to call multiple times, the first
// successful initialisation wins.
func WithTracing(serviceName, serviceVersion, outputFile string) Option {
	return func(s *Service) {
		_ = tracing.Init(serviceName, serviceVersion, outputFile)
	}
}

// WithTracingExporter configures OpenTelemetry tracing using a custom
// SpanExporter, for example OTLP, Jaeger or Zipkin. Safe to call multiple
// times, the first successful initialisation wins.
func WithTracingExporter(serviceName, serviceVersion string, exporter sdktrace.SpanExporter) Option {
	return func(s *Service) {
		_ = tracing.InitWithExporter(serviceName, serviceVersion, exporter)
	}
}
