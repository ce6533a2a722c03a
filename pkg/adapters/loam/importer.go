// Package loam imports a directory of Markdown node documents into a
// configuration store. Frontmatter carries the node definition and the body
// carries its text.
package loam

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/aretw0/loam"
	"github.com/aretw0/storeflow/internal/logging"
	"github.com/aretw0/storeflow/pkg/domain"
	"github.com/aretw0/storeflow/pkg/ports"
)

// Importer keeps a ConfigurationAdmin in sync with a loam repository.
type Importer struct {
	repo   *loam.TypedRepository[NodeMetadata]
	admin  ports.ConfigurationAdmin
	logger *slog.Logger

	mu    sync.Mutex
	known map[string]bool
}

type Option func(*Importer)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(i *Importer) {
		i.logger = logger
	}
}

// New creates an importer writing into admin.
func New(repo *loam.TypedRepository[NodeMetadata], admin ports.ConfigurationAdmin, opts ...Option) *Importer {
	i := &Importer{
		repo:   repo,
		admin:  admin,
		logger: logging.NewNop(),
		known:  make(map[string]bool),
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Import loads every document and saves it as a node. Nodes imported by a
// previous call whose documents are gone are deleted. It returns the number
// of nodes saved.
func (i *Importer) Import(ctx context.Context) (int, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	docs, err := i.repo.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("loam list failed: %w", err)
	}

	seen := make(map[string]string, len(docs))
	type entry struct {
		node    domain.Node
		enabled bool
	}
	entries := make([]entry, 0, len(docs))
	for _, doc := range docs {
		node, enabled, err := ToNode(doc.ID, doc.Data, doc.Content)
		if err != nil {
			return 0, fmt.Errorf("document %s: %w", doc.ID, err)
		}
		if existing, ok := seen[node.Code()]; ok {
			return 0, fmt.Errorf("collision detected: code '%s' is defined in both '%s' and '%s'", node.Code(), existing, doc.ID)
		}
		seen[node.Code()] = doc.ID
		entries = append(entries, entry{node: node, enabled: enabled})
	}

	for _, e := range entries {
		if err := i.admin.PutNode(ctx, e.node, e.enabled); err != nil {
			return 0, fmt.Errorf("failed to save node %s: %w", e.node.Code(), err)
		}
	}

	var gone []string
	for code := range i.known {
		if _, ok := seen[code]; !ok {
			gone = append(gone, code)
		}
	}
	sort.Strings(gone)
	for _, code := range gone {
		if err := i.admin.DeleteNode(ctx, code); err != nil {
			return 0, fmt.Errorf("failed to delete node %s: %w", code, err)
		}
		i.logger.Info("node document removed", "node", code)
	}

	i.known = make(map[string]bool, len(seen))
	for code := range seen {
		i.known[code] = true
	}
	i.logger.Debug("nodes imported", "count", len(entries), "removed", len(gone))
	return len(entries), nil
}

// Watch starts the loam watcher and re-imports on every change until ctx is done.
func (i *Importer) Watch(ctx context.Context) error {
	events, err := i.repo.Watch(ctx, "**/*.{md,json,yaml,yml}")
	if err != nil {
		return fmt.Errorf("failed to start loam watcher: %w", err)
	}

	changes := make(chan string, 1)
	go func() {
		defer close(changes)
		for {
			select {
			case <-ctx.Done():
				return
			case evt, ok := <-events:
				if !ok {
					return
				}
				select {
				case changes <- evt.ID:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	i.Sync(ctx, changes)
	return nil
}

// Sync re-imports once per received document id until the channel closes or
// ctx is done. Import failures are logged and the previous nodes stay in place.
func (i *Importer) Sync(ctx context.Context, changes <-chan string) {
	for {
		select {
		case <-ctx.Done():
			return
		case id, ok := <-changes:
			if !ok {
				return
			}
			n, err := i.Import(ctx)
			if err != nil {
				i.logger.Error("re-import failed", "document", id, "err", err)
				continue
			}
			i.logger.Info("flow reloaded", "document", id, "nodes", n)
		}
	}
}

// ToNode converts a document into a node. The second result is its enabled flag.
func ToNode(docID string, meta NodeMetadata, body string) (domain.Node, bool, error) {
	code := meta.Code
	if code == "" {
		code = trimExtension(docID)
	}
	enabled := meta.Enabled == nil || *meta.Enabled

	typ := domain.NodeType(strings.ToUpper(meta.Type))
	if typ == "" {
		typ = domain.TypeMessage
	}

	base := domain.Base{
		NodeCode: code,
		Content: domain.Content{
			Text:      strings.TrimSpace(body),
			ParseMode: domain.ParseMode(meta.ParseMode),
			Image:     meta.Image,
		},
		Buttons: meta.Buttons,
	}

	switch typ {
	case domain.TypeMessage:
		return &domain.MessageNode{Base: base}, enabled, nil
	case domain.TypeInput:
		if meta.Input == nil {
			return nil, false, fmt.Errorf("input node %s has no input section", code)
		}
		return &domain.InputNode{Base: base, Input: domain.InputSpec{
			Kind:          domain.ValueKind(strings.ToUpper(meta.Input.Kind)),
			StorageKey:    meta.Input.StorageKey,
			Required:      meta.Input.Required,
			MinLength:     meta.Input.MinLength,
			ErrorText:     meta.Input.ErrorText,
			SuccessTarget: meta.Input.SuccessTarget,
			CancelTarget:  meta.Input.CancelTarget,
		}}, enabled, nil
	case domain.TypeCondition:
		return &domain.ConditionNode{
			NodeCode:    code,
			Operator:    domain.Operator(strings.ToUpper(meta.Operator)),
			Key:         meta.Key,
			Literal:     meta.Literal,
			TrueTarget:  meta.TrueTarget,
			FalseTarget: meta.FalseTarget,
		}, enabled, nil
	case domain.TypeSubscription:
		return &domain.SubscriptionNode{
			NodeCode:          code,
			Channels:          meta.Channels,
			FailText:          meta.FailText,
			SuccessTarget:     meta.SuccessTarget,
			FailTarget:        meta.FailTarget,
			UnavailableTarget: meta.UnavailableTarget,
		}, enabled, nil
	case domain.TypeAction:
		actions := make([]domain.NodeAction, 0, len(meta.Actions))
		for idx, a := range meta.Actions {
			order := idx
			if a.SortOrder != nil {
				order = *a.SortOrder
			}
			actions = append(actions, domain.NodeAction{
				ID:        int64(idx + 1),
				Kind:      domain.ActionKind(strings.ToUpper(a.Kind)),
				Payload:   a.Payload,
				SortOrder: order,
				Enabled:   a.Enabled == nil || *a.Enabled,
			})
		}
		return &domain.ActionNode{NodeCode: code, Actions: actions, Next: meta.Next}, enabled, nil
	}
	return nil, false, fmt.Errorf("unknown node type %q", meta.Type)
}

func trimExtension(id string) string {
	ext := filepath.Ext(id)
	if ext != "" {
		return filepath.ToSlash(strings.TrimSuffix(id, ext))
	}
	return filepath.ToSlash(id)
}

// Open initializes a read-only loam repository at path and returns an importer over it.
func Open(path string, admin ports.ConfigurationAdmin, opts ...Option) (*Importer, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("invalid path: %w", err)
	}
	// Strict mode keeps numbers as json.Number across Markdown, YAML and JSON documents.
	repo, err := loam.Init(absPath,
		loam.WithStrict(true),
		loam.WithReadOnly(true),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize loam: %w", err)
	}
	return New(loam.NewTypedRepository[NodeMetadata](repo), admin, opts...), nil
}
