package coldcore

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/cucumber/godog"
)

// lifecycleBDDContext carries one scenario's controller state between steps.
type lifecycleBDDContext struct {
	orch      *Orchestrator
	modules   map[string]*fakeModule
	stopOrder []string
}

func (c *lifecycleBDDContext) aControllerWithModules(criticalName, backgroundName string) error {
	c.orch = NewOrchestrator(&testLogger{})
	c.modules = make(map[string]*fakeModule)

	for name, priority := range map[string]Priority{
		criticalName:   PriorityCritical,
		backgroundName: PriorityBackground,
	} {
		m := &fakeModule{name: name, stopOrder: &c.stopOrder}
		c.modules[name] = m
		if err := c.orch.Register(m, priority); err != nil {
			return err
		}
	}
	return nil
}

func (c *lifecycleBDDContext) allModulesConfiguredAndInitialized() error {
	c.orch.ConfigureAll(NewConfigTree(nil))
	return c.orch.InitAll(context.Background())
}

func (c *lifecycleBDDContext) moduleIsDisabled(name string) error {
	return c.orch.Disable(name)
}

func (c *lifecycleBDDContext) moduleIsReloaded(name string) error {
	return c.orch.Reload(name, nil)
}

func (c *lifecycleBDDContext) aTickPassRuns() error {
	c.orch.TickAll(0)
	return nil
}

func (c *lifecycleBDDContext) controllerShutsDown() error {
	c.orch.ShutdownAll()
	return nil
}

func (c *lifecycleBDDContext) moduleOrderIs(expected string) error {
	actual := strings.Join(c.orch.ModuleNames(), ",")
	if actual != expected {
		return fmt.Errorf("expected module order %q, got %q", expected, actual)
	}
	return nil
}

func (c *lifecycleBDDContext) stopOrderIs(expected string) error {
	actual := strings.Join(c.stopOrder, ",")
	if actual != expected {
		return fmt.Errorf("expected stop order %q, got %q", expected, actual)
	}
	return nil
}

func (c *lifecycleBDDContext) everyModuleReportsState(expected string) error {
	for _, name := range c.orch.ModuleNames() {
		stats, ok := c.orch.Stats(name)
		if !ok {
			return fmt.Errorf("no stats for module %q", name)
		}
		if stats.State != expected {
			return fmt.Errorf("module %q is %q, expected %q", name, stats.State, expected)
		}
	}
	return nil
}

func (c *lifecycleBDDContext) moduleHasUpdates(name string, expected int) error {
	m, ok := c.modules[name]
	if !ok {
		return fmt.Errorf("unknown module %q", name)
	}
	if m.updates != expected {
		return fmt.Errorf("module %q has %d updates, expected %d", name, m.updates, expected)
	}
	return nil
}

func (c *lifecycleBDDContext) moduleHasInitializations(name string, expected int) error {
	m, ok := c.modules[name]
	if !ok {
		return fmt.Errorf("unknown module %q", name)
	}
	if m.inits != expected {
		return fmt.Errorf("module %q has %d initializations, expected %d", name, m.inits, expected)
	}
	return nil
}

func (c *lifecycleBDDContext) systemHealthScoreIs(expected int) error {
	report := c.orch.HealthReport()
	if report.SystemScore != float64(expected) {
		return fmt.Errorf("system health score is %.1f, expected %d", report.SystemScore, expected)
	}
	return nil
}

// InitializeLifecycleScenario wires the lifecycle steps for one scenario.
func InitializeLifecycleScenario(ctx *godog.ScenarioContext) {
	c := &lifecycleBDDContext{}

	ctx.Step(`^a controller with a critical module "([^"]*)" and a background module "([^"]*)"$`, c.aControllerWithModules)
	ctx.Step(`^all modules are configured and initialized$`, c.allModulesConfiguredAndInitialized)
	ctx.Step(`^the module "([^"]*)" is disabled$`, c.moduleIsDisabled)
	ctx.Step(`^the module "([^"]*)" is reloaded$`, c.moduleIsReloaded)
	ctx.Step(`^a tick pass runs$`, c.aTickPassRuns)
	ctx.Step(`^the controller shuts down$`, c.controllerShutsDown)
	ctx.Step(`^the module order is "([^"]*)"$`, c.moduleOrderIs)
	ctx.Step(`^the stop order is "([^"]*)"$`, c.stopOrderIs)
	ctx.Step(`^every module reports state "([^"]*)"$`, c.everyModuleReportsState)
	ctx.Step(`^the module "([^"]*)" has (\d+) updates$`, c.moduleHasUpdates)
	ctx.Step(`^the module "([^"]*)" has (\d+) initializations$`, c.moduleHasInitializations)
	ctx.Step(`^the system health score is (\d+)$`, c.systemHealthScoreIs)
}

// TestModuleLifecycleBDD runs the behavior tests for the orchestration core.
func TestModuleLifecycleBDD(t *testing.T) {
	suite := godog.TestSuite{
		ScenarioInitializer: InitializeLifecycleScenario,
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"features/module_lifecycle.feature"},
			TestingT: t,
		},
	}

	if suite.Run() != 0 {
		t.Fatal("non-zero status returned, failed to run feature tests")
	}
}
