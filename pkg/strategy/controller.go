package strategy

import (
	"github.com/raykavin/stratfuse/pkg/core"
	"github.com/raykavin/stratfuse/pkg/logger"
)

// Controller runs a fixed set of modules over snapshots, isolating failures
type Controller struct {
	modules []Module
	log     logger.Logger
}

// NewController creates a controller for the given modules
func NewController(log logger.Logger, modules ...Module) *Controller {
	return &Controller{
		modules: modules,
		log:     log,
	}
}

// Modules returns the modules in execution order
func (c *Controller) Modules() []Module {
	return c.modules
}

// Run scores the snapshot with every module. A failing module is reported as a
// neutral failed result and never aborts the others.
func (c *Controller) Run(snap core.Snapshot) []Result {
	results := make([]Result, 0, len(c.modules))
	for _, m := range c.modules {
		res := Safe(m, snap)
		if res.Failed {
			c.log.WithFields(map[string]any{
				"instrument": snap.Instrument,
				"module":     m.ID(),
			}).Warnf("strategy module failed: %s", res.Rationale)
		} else {
			c.log.WithFields(map[string]any{
				"instrument": snap.Instrument,
				"module":     m.ID(),
				"score":      res.Score,
				"action":     res.Action,
			}).Trace("strategy module scored")
		}
		results = append(results, res)
	}
	return results
}
