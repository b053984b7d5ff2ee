package agent

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/papercomputeco/treeagent/pkg/eventstream"
	"github.com/papercomputeco/treeagent/pkg/interpreter"
	"github.com/papercomputeco/treeagent/pkg/llm"
	"github.com/papercomputeco/treeagent/pkg/memory"
	"github.com/papercomputeco/treeagent/pkg/output"
	"github.com/papercomputeco/treeagent/pkg/prompt"
	"github.com/papercomputeco/treeagent/pkg/utils"
)

// turn is the outcome of executing one node.
type turn struct {
	// node is the answer node, or the executed node when the turn failed or
	// asked a question.
	node *memory.Node

	stop   bool
	failed bool
}

// streamResult is what one model stream produced.
type streamResult struct {
	content     string
	interpreter interpreter.Interpreter
	result      interpreter.Result
}

// executeNode runs one turn for node. Errors returned are fatal to the run;
// a failed turn is rolled back and reported through turn.failed.
func (a *Agent) executeNode(ctx context.Context, runID string, node *memory.Node, sink output.Func, logger *zap.Logger) (turn, error) {
	started := time.Now()
	mctx := context.WithoutCancel(ctx)
	logger = logger.With(zap.Int64("node_id", node.ID), zap.String("action", string(node.Action)))

	if node.Action == memory.ActionPlanAsk {
		logger.Info("plan question, waiting for an answer")
		if err := a.emit(ctx, sink, output.Token("\n"+node.Content+"\n"), output.EndOfTurn); err != nil {
			logger.Warn("output sink failed", zap.Error(err))
		}
		a.publish(mctx, runID, node, nil, started, true, nil)
		return turn{node: node, stop: true}, nil
	}

	messages, err := a.messages(node)
	if err != nil {
		return turn{}, err
	}

	// Children present before the turn survive a rollback; anything an
	// interpreter adds under node during the turn does not.
	origin, err := a.memory.GetNode(node.ID)
	if err != nil {
		return turn{}, err
	}
	kept := origin.Children

	answer, err := a.memory.AddNodeAfter(mctx, node.ID, &memory.Node{
		Role:   memory.RoleAssistant,
		Action: memory.ActionAnswer,
	})
	if err != nil {
		return turn{}, err
	}
	if err := a.memory.SetCurrentNode(mctx, answer.ID); err != nil {
		return turn{}, err
	}

	res, turnErr := a.stream(ctx, node, messages, sink, logger)
	if turnErr != nil {
		logger.Error("turn failed, rolling back", zap.Error(turnErr))
		if err := sink(mctx, output.Partial(res.content)); err != nil {
			logger.Warn("output sink failed", zap.Error(err))
		}
		if err := a.discardChildren(mctx, node.ID, kept); err != nil {
			return turn{}, err
		}
		if err := a.memory.DeleteNode(mctx, answer.ID); err != nil {
			return turn{}, err
		}
		if err := a.memory.SetCurrentNode(mctx, node.ID); err != nil {
			return turn{}, err
		}
		a.publish(mctx, runID, node, nil, started, false, turnErr)
		return turn{node: node, failed: true}, nil
	}

	content := res.content
	if res.interpreter != nil {
		content += "\n" + res.result.Output + "\n"
	}
	if err := a.memory.AppendContent(mctx, answer.ID, content); err != nil {
		return turn{}, err
	}
	if err := a.memory.SuccessNode(mctx, node.ID); err != nil {
		return turn{}, err
	}
	if err := a.memory.SuccessNode(mctx, answer.ID); err != nil {
		return turn{}, err
	}

	answer, err = a.memory.GetNode(answer.ID)
	if err != nil {
		return turn{}, err
	}
	a.publish(mctx, runID, node, &res, started, res.result.Stop, nil)

	logger.Debug("turn complete",
		zap.Int64("answer_id", answer.ID),
		zap.Bool("stop", res.result.Stop),
		zap.Duration("duration", time.Since(started)),
	)
	return turn{node: answer, stop: res.result.Stop}, nil
}

// discardChildren deletes every subtree under id whose root is not in kept,
// leaves first.
func (a *Agent) discardChildren(ctx context.Context, id int64, kept []int64) error {
	node, err := a.memory.GetNode(id)
	if err != nil {
		return err
	}
	for _, child := range node.Children {
		if slices.Contains(kept, child) {
			continue
		}
		if err := a.deleteSubtree(ctx, child); err != nil {
			return err
		}
	}
	return nil
}

func (a *Agent) deleteSubtree(ctx context.Context, id int64) error {
	node, err := a.memory.GetNode(id)
	if err != nil {
		return err
	}
	for _, child := range node.Children {
		if err := a.deleteSubtree(ctx, child); err != nil {
			return err
		}
	}
	return a.memory.DeleteNode(ctx, id)
}

// messages builds the prompt: the system prompt followed by the context
// chain of node.
func (a *Agent) messages(node *memory.Node) ([]llm.Message, error) {
	data := prompt.NewAgentData(a.clock, a.workspace, a.tools)
	if a.concepts != nil {
		data.Memory = a.concepts.ShowMemory()
	}
	system, err := prompt.Agent(data)
	if err != nil {
		return nil, err
	}

	related, err := a.memory.RelatedMessages(node.ID)
	if err != nil {
		return nil, err
	}
	return append([]llm.Message{llm.NewTextMessage(llm.RoleSystem, system)}, related...), nil
}

// stream reads the model answer for node, handing every chunk to the sink
// and the matcher. The first interpreter to match closes the stream and
// carries out its action.
func (a *Agent) stream(ctx context.Context, node *memory.Node, messages []llm.Message, sink output.Func, logger *zap.Logger) (streamResult, error) {
	var res streamResult

	if node.Action == memory.ActionPlan {
		if err := sink(ctx, output.Token(fmt.Sprintf("\n[%s]\n", node.Content))); err != nil {
			return res, err
		}
	}

	stream, err := a.client.Stream(ctx, messages)
	if err != nil {
		return res, fmt.Errorf("failed to open stream: %w", err)
	}
	defer stream.Close()

	a.matcher.Reset()
	var buf strings.Builder
	for {
		chunk, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			res.content = buf.String()
			return res, fmt.Errorf("stream failed: %w", err)
		}
		if chunk.Content == "" {
			continue
		}

		buf.WriteString(chunk.Content)
		res.content = buf.String()
		if err := sink(ctx, output.Token(chunk.Content)); err != nil {
			return res, err
		}

		interp, ok := a.matcher.Match(res.content)
		if !ok {
			continue
		}

		// Abandon the rest of the answer before running the action.
		stream.Close()

		logger.Info("interpreter matched", zap.String("interpreter", interp.Name()))
		result, err := interp.Parse(ctx, interpreter.Request{Content: res.content, Node: node})
		if err != nil {
			return res, fmt.Errorf("interpreter %s: %w", interp.Name(), err)
		}
		res.interpreter = interp
		res.result = result

		if err := sink(ctx, output.Token("\n"+result.Output+"\n")); err != nil {
			return res, err
		}
		break
	}

	if err := sink(ctx, output.EndOfTurn); err != nil {
		return res, err
	}
	return res, nil
}

func (a *Agent) emit(ctx context.Context, sink output.Func, outs ...output.Output) error {
	for _, o := range outs {
		if err := sink(ctx, o); err != nil {
			return err
		}
	}
	return nil
}

// publish hands a node-completed event to the publisher, if any. Publishing
// never fails a turn.
func (a *Agent) publish(ctx context.Context, runID string, node *memory.Node, res *streamResult, started time.Time, stop bool, turnErr error) {
	if a.publisher == nil {
		return
	}

	current, err := a.memory.GetNode(node.ID)
	if err != nil {
		current = node
	}

	source := eventstream.EventSource{Workspace: a.workspace}
	if named, ok := a.client.(llm.Named); ok {
		source.Provider = named.Provider()
		source.Model = named.Model()
	}

	event := eventstream.NewNodeCompletedEvent(runID, source, eventstream.NodeMeta{
		ID:       current.ID,
		ParentID: current.ParentID,
		Role:     string(current.Role),
		Action:   string(current.Action),
		Depth:    current.Depth,
		Status:   string(current.Status),
	})

	if res != nil {
		answer := a.memory.CurrentNode()
		event.Answer = &eventstream.AnswerMeta{
			ID:             answer.ID,
			ContentPreview: utils.Truncate(answer.Content, 200),
		}
		if res.interpreter != nil {
			event.Answer.Interpreter = res.interpreter.Name()
		}
	}

	completed := time.Now()
	event.Turn = eventstream.TurnMeta{
		StartedAt:   started.UTC(),
		CompletedAt: completed.UTC(),
		DurationMs:  completed.Sub(started).Milliseconds(),
		Stop:        stop,
		Failed:      turnErr != nil,
	}
	if turnErr != nil {
		event.Turn.Error = turnErr.Error()
	}

	if err := a.publisher.PublishNode(ctx, event); err != nil {
		a.logger.Warn("failed to publish node event",
			zap.String("run_id", runID),
			zap.Int64("node_id", node.ID),
			zap.Error(err),
		)
	}
}
