// The orchestrator is harnessd's composition root: it wires pkg/config,
// pkg/registry, pkg/scheduler, pkg/executors, pkg/health, and pkg/discovery
// together behind the daemon.Backend interface, the same way cuemby-warren's
// cmd/warren/main.go builds one manager.Manager from its own leaf packages
// and hands it to a transport server.
package main

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/cuemby/harness/pkg/command"
	"github.com/cuemby/harness/pkg/config"
	"github.com/cuemby/harness/pkg/discovery"
	"github.com/cuemby/harness/pkg/executor"
	"github.com/cuemby/harness/pkg/executors"
	"github.com/cuemby/harness/pkg/health"
	"github.com/cuemby/harness/pkg/herrors"
	"github.com/cuemby/harness/pkg/log"
	"github.com/cuemby/harness/pkg/registry"
	"github.com/cuemby/harness/pkg/scheduler"
	"github.com/cuemby/harness/pkg/state"
	"github.com/cuemby/harness/pkg/types"
)

var orchestratorLogger = log.WithComponent("orchestrator")

// runningService tracks the live handle and health monitor behind one
// started service, so StopService can tear both down.
type runningService struct {
	handle  executor.Handle
	monitor *health.Monitor
}

// orchestrator implements daemon.Backend over a loaded stack and the
// scheduler/registry/executors/health packages.
type orchestrator struct {
	stack  *config.Stack
	reg    *registry.Registry
	sched  *scheduler.Scheduler
	execs  *executors.Registry
	docker *executors.DockerExecutor // owned separately: needs Close on Shutdown
	graph  *scheduler.Graph
	inject *discovery.EnvInjector // resolves <DEP>_HOST/_ADDR/_PORT for a service's dependencies
	tasks  *executors.TaskFactory // task-type -> executor, for one-shot tasks
	life   *state.Manager         // mirrors each service/task's registry state; lets Start* wait on a dependency

	mu      sync.Mutex
	running map[string]*runningService
}

// newOrchestrator builds an orchestrator for stack. dockerSocket may be
// empty to use the default containerd socket; a stack with no docker
// services and no docker tasks never dials containerd.
func newOrchestrator(stack *config.Stack, reg *registry.Registry, dockerSocket string) (*orchestrator, error) {
	nodes := make([]scheduler.Node, 0, len(stack.Services)+len(stack.Tasks))
	for name, svc := range stack.Services {
		nodes = append(nodes, scheduler.Node{Name: name, DependsOn: svc.Dependencies})
	}
	for name, task := range stack.Tasks {
		nodes = append(nodes, scheduler.Node{Name: name, DependsOn: task.Dependencies})
	}
	graph, err := scheduler.Build(nodes)
	if err != nil {
		return nil, err
	}

	var execList []executors.ServiceExecutor
	var dockerExec *executors.DockerExecutor
	if needsDocker(stack) {
		dockerExec, err = executors.NewDockerExecutor(dockerSocket)
		if err != nil {
			return nil, err
		}
		execList = append(execList, dockerExec)
	}
	processExec := executors.NewProcessExecutor()
	remoteExec := executors.NewRemoteExecutor()
	execList = append(execList, processExec, remoteExec)

	resolver := discovery.NewResolver(serviceNetworks(stack))
	inject := discovery.NewEnvInjector(resolver, servicePorts(stack))

	taskFactory := executors.NewTaskFactory()
	taskFactory.Register(string(config.ServiceProcess), processExec)
	taskFactory.Register(string(config.ServiceRemote), remoteExec)
	if dockerExec != nil {
		taskFactory.Register(string(config.ServiceDocker), dockerExec)
	}
	// Scheduler validation rule 3 (spec §4.H): every task's task-type must
	// already be registered in the factory before any node runs.
	for name, task := range stack.Tasks {
		if !taskFactory.Supports(task.Type) {
			return nil, herrors.New(herrors.Config, "task "+name+" has unregistered task-type: "+task.Type)
		}
	}

	return &orchestrator{
		stack:   stack,
		reg:     reg,
		sched:   scheduler.New(),
		execs:   executors.NewRegistry(execList...),
		docker:  dockerExec,
		graph:   graph,
		inject:  inject,
		tasks:   taskFactory,
		life:    state.New(),
		running: make(map[string]*runningService),
	}, nil
}

// serviceNetworks builds the per-service topology table a discovery.Resolver
// needs out of the stack's networks map. harnessd runs every service for one
// stack on the same daemon host, so every entry shares the same HostIP and
// no entry gets a LAN or overlay address. The network's declared type still
// sets Location, so Resolve fails for any pair whose table cell needs a
// LAN or overlay address.
func serviceNetworks(stack *config.Stack) []types.ServiceNetwork {
	entries := make([]types.ServiceNetwork, 0, len(stack.Services))
	for name, svc := range stack.Services {
		loc := types.TopologyLocal
		if net, ok := stack.Networks[svc.Network]; ok {
			switch net.Type {
			case config.NetworkLAN:
				loc = types.TopologyLAN
			case config.NetworkOverlay:
				loc = types.TopologyOverlay
			}
		}
		entries = append(entries, types.ServiceNetwork{
			ServiceName: name,
			Location:    loc,
			HostIP:      "127.0.0.1",
		})
	}
	return entries
}

// servicePorts extracts the one port each service's configuration exposes a
// TCP health check against, the only place the stack schema declares a
// service's listening port. Services with no TCP health check get no port
// var (<DEP>_HOST/_ADDR still resolve; <DEP>_PORT is omitted).
func servicePorts(stack *config.Stack) map[string]int {
	ports := make(map[string]int, len(stack.Services))
	for name, svc := range stack.Services {
		if svc.HealthCheck != nil && svc.HealthCheck.TCP != nil {
			ports[name] = svc.HealthCheck.TCP.Port
		}
	}
	return ports
}

func needsDocker(stack *config.Stack) bool {
	for _, svc := range stack.Services {
		if svc.Type == config.ServiceDocker {
			return true
		}
	}
	for _, task := range stack.Tasks {
		if task.Type == string(config.ServiceDocker) {
			return true
		}
	}
	return false
}

// descriptorKindFor maps a stack service's declared type onto the
// ExecutionDescriptor taxonomy pkg/executors dispatches on. Remote and
// process both resolve to managed-process: the orchestrator picks between
// ProcessExecutor and RemoteExecutor directly by service type rather than
// relying on executors.Registry.For, which can only disambiguate by kind
// (see pkg/executors/executors_test.go's TestRegistryPicksFirstMatch).
func descriptorKindFor(t config.ServiceType) (types.DescriptorKind, error) {
	switch t {
	case config.ServiceDocker:
		return types.DescriptorDockerContainer, nil
	case config.ServiceProcess, config.ServiceRemote:
		return types.DescriptorManagedProcess, nil
	case config.ServicePackage:
		return "", herrors.New(herrors.Unsupported, "package/systemd-portable services have no wired executor yet")
	default:
		return "", herrors.New(herrors.Config, "unknown service type: "+string(t))
	}
}

func (o *orchestrator) pickExecutor(svc config.ServiceConfig) (executors.ServiceExecutor, error) {
	if svc.Type == config.ServiceRemote {
		return executors.NewRemoteExecutor(), nil
	}
	kind, err := descriptorKindFor(svc.Type)
	if err != nil {
		return nil, err
	}
	e, ok := o.execs.For(kind)
	if !ok {
		return nil, herrors.New(herrors.Unsupported, "no executor wired for "+string(svc.Type))
	}
	return e, nil
}

// serviceLookup adapts the registry to config.ServiceLookup, resolving
// ${dep.addr}/${dep.port} against a dependency's first registered endpoint.
type serviceLookup struct{ o *orchestrator }

func (l serviceLookup) Lookup(service string) (string, int, bool) {
	entry, ok := l.o.reg.GetService(service)
	if !ok || len(entry.Endpoints) == 0 {
		return "", 0, false
	}
	ep := entry.Endpoints[0]
	return ep.IP, ep.Port, true
}

func (o *orchestrator) buildCommand(name string, svc config.ServiceConfig) (*command.Command, error) {
	var program string
	var args []string
	switch svc.Type {
	case config.ServiceDocker:
		// The container's entrypoint override, if any; the image itself
		// lives on the ExecutionDescriptor, not the Command.
		if len(svc.Command) > 0 {
			program, args = svc.Command[0], svc.Command[1:]
		}
	case config.ServiceProcess, config.ServiceRemote:
		if len(svc.Command) == 0 {
			return nil, herrors.New(herrors.Config, "service has no command configured")
		}
		program, args = svc.Command[0], svc.Command[1:]
	default:
		return nil, herrors.New(herrors.Config, "unsupported service type: "+string(svc.Type))
	}

	b := command.NewBuilder(program).Args(args...)

	// Dependency addresses go in first so a service's own explicit env
	// (below) always wins on a key collision.
	depEnv, err := o.inject.Inject(name, svc.Dependencies)
	if err != nil {
		return nil, err
	}
	b = b.Envs(depEnv)

	env, _, err := config.InterpolateEnv(svc.Env, serviceLookup{o}, false)
	if err != nil {
		return nil, err
	}
	b = b.Envs(env)
	return b.Build(), nil
}

func locationFor(svc config.ServiceConfig) types.Location {
	if svc.Type == config.ServiceRemote {
		return types.Location{Kind: types.LocationRemote, Host: svc.Host, User: svc.User, Port: svc.Port}
	}
	return types.Location{Kind: types.LocationLocal}
}

// StartService launches name per its stack definition, attaching a health
// monitor when one is configured. config is currently unused: every
// service's definition comes from the loaded stack, not a per-request
// override.
func (o *orchestrator) StartService(ctx context.Context, name string, _ json.RawMessage) (types.ServiceEntry, map[string]string, error) {
	svc, ok := o.stack.Services[name]
	if !ok {
		return types.ServiceEntry{}, nil, herrors.New(herrors.Registry, "no such service in stack: "+name)
	}

	if err := o.awaitDependencies(ctx, name, svc.Dependencies); err != nil {
		return types.ServiceEntry{}, nil, err
	}

	entry, exists := o.reg.GetService(name)
	if !exists {
		entry = types.ServiceEntry{Name: name, DependsOn: svc.Dependencies, Location: locationFor(svc)}
		if err := o.reg.RegisterService(entry); err != nil {
			return types.ServiceEntry{}, nil, err
		}
	}
	if err := o.setState(name, types.ServiceStarting); err != nil {
		return types.ServiceEntry{}, nil, err
	}

	exec, err := o.pickExecutor(svc)
	if err != nil {
		return types.ServiceEntry{}, nil, err
	}
	cmd, err := o.buildCommand(name, svc)
	if err != nil {
		_ = o.setState(name, types.ServiceFailed)
		return types.ServiceEntry{}, nil, err
	}

	entry, _ = o.reg.GetService(name)
	if svc.Type == config.ServiceDocker {
		entry.Descriptor = types.ExecutionDescriptor{Kind: types.DescriptorDockerContainer, Image: svc.Image}
	}
	desc, events, handle, err := exec.Start(ctx, entry, cmd)
	if err != nil {
		_ = o.setState(name, types.ServiceFailed)
		return types.ServiceEntry{}, nil, err
	}
	entry.Descriptor = desc

	o.mu.Lock()
	o.running[name] = &runningService{handle: handle}
	o.mu.Unlock()
	go drainEvents(name, events)

	if err := o.setState(name, types.ServiceRunning); err != nil {
		return types.ServiceEntry{}, nil, err
	}

	netInfo, err := o.inject.Inject(name, svc.Dependencies)
	if err != nil {
		netInfo = map[string]string{}
	}
	if svc.HealthCheck != nil {
		o.startHealthMonitor(ctx, name, svc)
	}

	entry, _ = o.reg.GetService(name)
	return entry, netInfo, nil
}

// setState updates both the durable registry state and the in-memory
// lifecycle manager that backs awaitDependencies, so a dependent service
// starting elsewhere never polls the registry to find out a predecessor
// settled.
func (o *orchestrator) setState(name string, s types.ServiceState) error {
	o.life.Set(name, state.FromServiceState(s))
	return o.reg.SetServiceState(name, s)
}

// awaitDependencies blocks until every one of deps has reached a terminal
// lifecycle, then fails fast if any of them did not land on its "ready"
// state — Running for a service, Completed for a one-shot task (a task
// that already finished is never re-run to satisfy a dependent). A
// dependency that was never started at all (e.g. the caller invoked
// StartService directly instead of going through StartStack) is reported
// immediately rather than hanging: it is checked with Get first, since
// pkg/state.Manager.Wait on an untracked unit blocks until it is first Set.
func (o *orchestrator) awaitDependencies(ctx context.Context, name string, deps []string) error {
	for _, dep := range deps {
		ready := state.Running
		if _, isTask := o.stack.Tasks[dep]; isTask {
			ready = state.Completed
		}

		cur, tracked := o.life.Get(dep)
		if !tracked {
			return herrors.New(herrors.Registry, name+" depends on "+dep+", which has not been started")
		}
		if cur != ready {
			settled, err := o.life.Wait(ctx, dep)
			if err != nil {
				return herrors.Wrap(herrors.Registry, "waiting for dependency "+dep, err)
			}
			cur = settled
		}
		if cur != ready {
			return herrors.New(herrors.Registry, name+" depends on "+dep+", which settled as "+string(cur)+" instead of "+string(ready))
		}
	}
	return nil
}

func drainEvents(name string, events executor.EventStream) {
	for ev := range events {
		switch ev.Kind {
		case executor.EventExited:
			orchestratorLogger.Info().Str("service", name).Msg("service process exited")
		}
	}
}

func (o *orchestrator) startHealthMonitor(ctx context.Context, name string, svc config.ServiceConfig) {
	host := "127.0.0.1"
	checker, err := svc.HealthCheck.BuildChecker(host)
	if err != nil {
		orchestratorLogger.Warn().Str("service", name).Err(err).Msg("health check not started")
		return
	}
	monitor := health.NewMonitor(name, checker, svc.HealthCheck.ToHealthConfig(), o.reg)
	monitor.Start(ctx)

	o.mu.Lock()
	if rs, ok := o.running[name]; ok {
		rs.monitor = monitor
	}
	o.mu.Unlock()
}

// StopService stops name, force-killing it rather than terminating
// gracefully when force is set.
func (o *orchestrator) StopService(ctx context.Context, name string, force bool) error {
	if err := o.setState(name, types.ServiceStopping); err != nil {
		return err
	}

	o.mu.Lock()
	rs, ok := o.running[name]
	delete(o.running, name)
	o.mu.Unlock()
	if !ok {
		return herrors.New(herrors.NotRunning, "service not running: "+name)
	}
	if rs.monitor != nil {
		rs.monitor.Stop()
	}

	var err error
	if force {
		err = rs.handle.Kill()
	} else {
		err = rs.handle.Terminate()
	}
	if err != nil {
		_ = o.setState(name, types.ServiceFailed)
		return err
	}
	return o.setState(name, types.ServiceStopped)
}

func (o *orchestrator) GetServiceStatus(ctx context.Context, name string) (types.ServiceEntry, error) {
	entry, ok := o.reg.GetService(name)
	if !ok {
		return types.ServiceEntry{}, herrors.New(herrors.Registry, "service not found: "+name)
	}
	return entry, nil
}

func (o *orchestrator) ListServices(ctx context.Context) (map[string]types.ServiceEntry, error) {
	out := make(map[string]types.ServiceEntry)
	for _, e := range o.reg.ListServices() {
		out[e.Name] = e
	}
	return out, nil
}

func (o *orchestrator) RunHealthChecks(ctx context.Context, name string) (map[string]types.HealthResult, error) {
	out := make(map[string]types.HealthResult)
	entries := o.reg.ListServices()
	for _, e := range entries {
		if name != "" && e.Name != name {
			continue
		}
		if e.LastHealthResult != nil {
			out[e.Name] = *e.LastHealthResult
		}
	}
	return out, nil
}

// StartStack brings up every service and runs every one-shot task in the
// loaded stack in dependency order, via the scheduler's layered
// RunForward. A task node's StartFunc only returns once the task has run
// to completion, so anything depending on it only starts afterward.
func (o *orchestrator) StartStack(ctx context.Context) error {
	return o.sched.RunForward(ctx, o.graph, func(ctx context.Context, name string) error {
		if task, ok := o.stack.Tasks[name]; ok {
			_, err := o.StartTask(ctx, name, task)
			return err
		}
		_, _, err := o.StartService(ctx, name, nil)
		return err
	})
}

// StopStack tears down every running service in reverse dependency order,
// via the scheduler's best-effort RunReverse. Tasks are never "stopped" —
// by the time shutdown runs they have already reached a terminal state —
// so task nodes are a no-op here.
func (o *orchestrator) StopStack(ctx context.Context, force bool) error {
	return o.sched.RunReverse(ctx, o.graph, func(ctx context.Context, name string, force bool) error {
		if _, ok := o.stack.Tasks[name]; ok {
			return nil
		}
		return o.StopService(ctx, name, force)
	}, force)
}

// StartTask runs a one-shot task to completion via its registered
// task-type executor and records its outcome in the registry (spec §4.H,
// §4.I: tasks are never restarted, Completed/Failed are terminal).
func (o *orchestrator) StartTask(ctx context.Context, name string, task config.TaskConfig) (types.TaskEntry, error) {
	if err := o.awaitDependencies(ctx, name, task.Dependencies); err != nil {
		return types.TaskEntry{}, err
	}

	entry, exists := o.reg.GetTask(name)
	if !exists {
		entry = types.TaskEntry{Name: name, TaskType: task.Type, DependsOn: task.Dependencies}
		if err := o.reg.RegisterTask(entry); err != nil {
			return types.TaskEntry{}, err
		}
	}
	o.life.Set(name, state.FromTaskState(types.TaskRunning))
	if err := o.reg.SetTaskState(name, types.TaskRunning); err != nil {
		return types.TaskEntry{}, err
	}

	cmd, err := o.buildTaskCommand(name, task)
	if err != nil {
		o.failTask(name)
		return types.TaskEntry{}, err
	}

	taskEntry := types.ServiceEntry{Name: name}
	if task.Type == string(config.ServiceDocker) {
		taskEntry.Descriptor = types.ExecutionDescriptor{Kind: types.DescriptorDockerContainer, Image: task.Image}
	}
	status, err := o.tasks.Run(ctx, task.Type, taskEntry, cmd)
	if err != nil || status.Code == nil || *status.Code != 0 {
		o.failTask(name)
		if err != nil {
			return types.TaskEntry{}, err
		}
		return types.TaskEntry{}, herrors.New(herrors.Spawn, name+" exited non-zero")
	}

	o.life.Set(name, state.FromTaskState(types.TaskCompleted))
	if err := o.reg.SetTaskState(name, types.TaskCompleted); err != nil {
		return types.TaskEntry{}, err
	}
	entry, _ = o.reg.GetTask(name)
	return entry, nil
}

func (o *orchestrator) failTask(name string) {
	o.life.Set(name, state.FromTaskState(types.TaskFailed))
	_ = o.reg.SetTaskState(name, types.TaskFailed)
}

func (o *orchestrator) buildTaskCommand(name string, task config.TaskConfig) (*command.Command, error) {
	if len(task.Command) == 0 && task.Type != string(config.ServiceDocker) {
		return nil, herrors.New(herrors.Config, "task "+name+" has no command configured")
	}
	var program string
	var args []string
	if len(task.Command) > 0 {
		program, args = task.Command[0], task.Command[1:]
	}

	b := command.NewBuilder(program).Args(args...)
	depEnv, err := o.inject.Inject(name, task.Dependencies)
	if err != nil {
		return nil, err
	}
	b = b.Envs(depEnv)
	b = b.Envs(task.Env)
	return b.Build(), nil
}

func (o *orchestrator) Shutdown(ctx context.Context) error {
	o.mu.Lock()
	names := make([]string, 0, len(o.running))
	for name := range o.running {
		names = append(names, name)
	}
	o.mu.Unlock()

	for _, name := range names {
		if err := o.StopService(ctx, name, true); err != nil {
			orchestratorLogger.Warn().Str("service", name).Err(err).Msg("shutdown stop failed")
		}
	}
	if o.docker != nil {
		return o.docker.Close()
	}
	return nil
}
