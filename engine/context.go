package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/kbukum/docflow/document"
	"github.com/kbukum/docflow/errors"
	"github.com/kbukum/docflow/logger"
	"github.com/kbukum/docflow/observability"
)

// run is the state shared by every node of one engine run.
type run struct {
	id      uuid.UUID
	graph   *Graph
	store   *Store
	events  *Events
	log     *logger.Logger
	metrics *observability.Metrics
}

type executionContext struct {
	run  *run
	node *PipelinePhase
	log  *logger.Logger
}

// newContext tags the logger with the node and the trace and span IDs of
// the phase span in ctx.
func (r *run) newContext(ctx context.Context, node *PipelinePhase) *executionContext {
	return &executionContext{
		run:  r,
		node: node,
		log:  r.log.WithPhase(node.Pipeline, node.Phase.String()).WithContext(ctx),
	}
}

func (c *executionContext) RunID() uuid.UUID       { return c.run.id }
func (c *executionContext) PipelineName() string   { return c.node.Pipeline }
func (c *executionContext) Phase() Phase           { return c.node.Phase }
func (c *executionContext) Logger() *logger.Logger { return c.log }

func (c *executionContext) Documents() *DocumentCollection {
	return newDocumentCollection(c.run.store, c.run.graph, c.node)
}

func (c *executionContext) ExecuteModules(ctx context.Context, modules []Module, inputs []document.Document) ([]document.Document, error) {
	return c.run.executeModules(ctx, c, modules, inputs)
}

func (c *executionContext) withModule(ctx context.Context, name string) *executionContext {
	log := c.run.log.WithPhase(c.node.Pipeline, c.node.Phase.String()).WithModule(name).WithContext(ctx)
	return &executionContext{run: c.run, node: c.node, log: log}
}

// executeModules folds inputs through modules. Cancellation is checked
// before every module; module events bracket every invocation.
func (r *run) executeModules(ctx context.Context, parent *executionContext, modules []Module, inputs []document.Document) ([]document.Document, error) {
	docs := inputs
	for _, m := range modules {
		if m == nil {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out, err := r.executeModule(ctx, parent, m, docs)
		if err != nil {
			return nil, err
		}
		docs = out
	}
	return docs, nil
}

func (r *run) executeModule(ctx context.Context, parent *executionContext, m Module, inputs []document.Document) ([]document.Document, error) {
	name := ModuleName(m)
	ctx, span := observability.StartSpan(ctx, "module."+name)
	defer span.End()
	mc := parent.withModule(ctx, name)
	observability.SetSpanAttribute(ctx, observability.AttrPipeline, parent.node.Pipeline)
	observability.SetSpanAttribute(ctx, observability.AttrPhase, parent.node.Phase.String())
	observability.SetSpanAttribute(ctx, observability.AttrModule, name)
	observability.SetSpanAttribute(ctx, observability.AttrInputDocuments, len(inputs))

	start := time.Now()
	before := &BeforeModuleExecution{Context: mc, Module: m, Inputs: inputs}
	r.events.Publish(ctx, before)

	var outputs []document.Document
	if before.overridden {
		outputs = before.outputs
		observability.SetSpanAttribute(ctx, observability.AttrOverridden, true)
	} else {
		var err error
		outputs, err = invoke(ctx, mc, m, inputs)
		if err != nil {
			duration := time.Since(start)
			observability.SetSpanError(ctx, err)
			r.metrics.RecordModule(ctx, name, parent.node.Phase.String(), observability.StatusError, duration)
			r.metrics.RecordError(ctx, "module", name)
			return nil, fmt.Errorf("module %s: %w", name, err)
		}
	}

	after := &AfterModuleExecution{
		Context:  mc,
		Module:   m,
		Inputs:   inputs,
		Outputs:  outputs,
		Duration: time.Since(start),
	}
	r.events.Publish(ctx, after)
	if after.overridden {
		outputs = after.outputs
	}

	r.metrics.RecordModule(ctx, name, parent.node.Phase.String(), observability.StatusOK, time.Since(start))
	mc.log.Debug("module executed", logger.DurationFields(time.Since(start), len(outputs)))
	return outputs, nil
}

// invoke runs m and turns a panic into an INTERNAL_ERROR.
func invoke(ctx context.Context, ec ExecutionContext, m Module, inputs []document.Document) (out []document.Document, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Internal(fmt.Errorf("panic: %v", r))
		}
	}()
	return m.Execute(ctx, ec, inputs)
}
