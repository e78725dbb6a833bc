package device

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/meshnode/meshnode-go/pkg/wire"
)

// Element binds a model to a location.
type Element struct {
	// Name is used in logs, e.g. "display".
	Name string

	Location uint16
	Model    Model

	// Parser decodes the opcodes the model understands.
	Parser wire.Parser
}

// Node runs a set of elements behind one Router.
type Node struct {
	router   *Router
	elements []Element
	channels []*Channel
	logger   *slog.Logger
}

// NewNode binds elements to router.
func NewNode(router *Router, logger *slog.Logger, elements ...Element) (*Node, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	n := &Node{router: router, elements: elements, logger: logger}
	for _, el := range elements {
		ch, err := router.Bind(el.Location, el.Parser)
		if err != nil {
			return nil, err
		}
		n.channels = append(n.channels, ch)
	}
	return n, nil
}

// Router returns the node's router.
func (n *Node) Router() *Router {
	return n.router
}

// Run starts every model and waits for them to return.
//
// Cancelling ctx stops all models and Run returns nil. If a model fails,
// the others are cancelled and its error is returned.
func (n *Node) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	for i, el := range n.elements {
		ch := n.channels[i]
		g.Go(func() error {
			n.logger.Info("model started", "element", el.Name, "location", el.Location)
			err := el.Model.Run(gctx, ch)
			if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
				n.logger.Info("model stopped", "element", el.Name)
				return nil
			}
			if errors.Is(err, ErrClosed) {
				n.logger.Info("model inbound closed", "element", el.Name)
				return nil
			}
			if err != nil {
				n.logger.Error("model failed", "element", el.Name, "error", err)
			}
			return err
		})
	}

	err := g.Wait()
	n.router.Close()
	return err
}
