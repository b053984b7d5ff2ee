package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/papercomputeco/treeagent/pkg/clock"
	"github.com/papercomputeco/treeagent/pkg/llm"
	"github.com/papercomputeco/treeagent/pkg/storage"
)

const (
	// Bucket holds one record per node plus the metaKey record.
	Bucket = "memory"

	metaKey = "_meta"
)

// meta is the tree-level state persisted next to the nodes.
type meta struct {
	NextID  int64 `json:"next_id"`
	Current int64 `json:"current"`
}

// Memory is the conversation tree.
//
// Every exported method that mutates the tree writes the touched node
// records and the tree metadata in one storage batch before it returns. The
// arena only changes once that batch has committed. Nodes handed out are
// copies; callers refer back to the tree by id.
type Memory struct {
	// mu guards the arena so read-only snapshots can be served concurrently
	// with the agent loop.
	mu sync.RWMutex

	driver storage.Driver
	logger *zap.Logger
	clock  clock.Clock

	index   map[int64]*Node
	nextID  int64
	current int64
}

// Option configures a Memory.
type Option func(*Memory)

// WithLogger sets the logger used for persistence diagnostics.
func WithLogger(logger *zap.Logger) Option {
	return func(m *Memory) {
		m.logger = logger
	}
}

// WithClock sets the clock stamping CreatedAt on new nodes.
func WithClock(c clock.Clock) Option {
	return func(m *Memory) {
		m.clock = c
	}
}

// Open loads the tree persisted in driver, creating an empty tree with only
// the hidden root when nothing is stored yet.
func Open(ctx context.Context, driver storage.Driver, opts ...Option) (*Memory, error) {
	m := &Memory{
		driver: driver,
		logger: zap.NewNop(),
		clock:  clock.Real{},
		index:  make(map[int64]*Node),
		nextID: RootID + 1,
	}
	for _, opt := range opts {
		opt(m)
	}

	records, err := driver.List(ctx, Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to load memory: %w", err)
	}

	for _, record := range records {
		if record.Key == metaKey {
			var md meta
			if err := json.Unmarshal(record.Value, &md); err != nil {
				return nil, fmt.Errorf("failed to decode memory metadata: %w", err)
			}
			m.nextID = md.NextID
			m.current = md.Current
			continue
		}

		var n Node
		if err := json.Unmarshal(record.Value, &n); err != nil {
			return nil, fmt.Errorf("failed to decode memory node %s: %w", record.Key, err)
		}
		m.index[n.ID] = &n
	}

	if len(m.index) == 0 {
		root := &Node{
			ID:        RootID,
			ParentID:  RootID,
			Role:      RoleSystem,
			Action:    ActionRoot,
			Status:    StatusSuccess,
			CreatedAt: m.clock.Now(),
		}
		tx := m.begin()
		tx.put(root)
		if err := m.commit(ctx, tx); err != nil {
			return nil, err
		}
		return m, nil
	}

	if err := m.validate(); err != nil {
		return nil, err
	}

	m.logger.Debug("memory loaded", zap.Int("nodes", len(m.index)), zap.Int64("current", m.current))
	return m, nil
}

// validate checks the parent/child links of a freshly loaded arena.
func (m *Memory) validate() error {
	if _, ok := m.index[RootID]; !ok {
		return fmt.Errorf("%w: root node missing", ErrInvariant)
	}
	if _, ok := m.index[m.current]; !ok {
		return fmt.Errorf("%w: current node %d missing", ErrInvariant, m.current)
	}

	for id, n := range m.index {
		if id >= m.nextID {
			return fmt.Errorf("%w: node %d not below next id %d", ErrInvariant, id, m.nextID)
		}
		for _, child := range n.Children {
			c, ok := m.index[child]
			if !ok || c.ParentID != id {
				return fmt.Errorf("%w: node %d lists unknown child %d", ErrInvariant, id, child)
			}
		}
		if n.IsRoot() {
			continue
		}
		parent, ok := m.index[n.ParentID]
		if !ok || !slices.Contains(parent.Children, id) {
			return fmt.Errorf("%w: node %d detached from parent %d", ErrInvariant, id, n.ParentID)
		}
	}
	return nil
}

// AddNode appends n as the last child of the root.
func (m *Memory) AddNode(ctx context.Context, n *Node) (*Node, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	tx := m.begin()
	root := m.index[RootID].Clone()
	node := tx.newNode(m.clock, n, RootID, 0)
	root.Children = append(root.Children, node.ID)
	tx.put(node, root)

	if err := m.commit(ctx, tx); err != nil {
		return nil, err
	}
	return node.Clone(), nil
}

// AddNodeIn appends n as the last child of parentID, one level deeper.
func (m *Memory) AddNodeIn(ctx context.Context, parentID int64, n *Node) (*Node, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	parent, err := m.get(parentID)
	if err != nil {
		return nil, err
	}

	depth := parent.Depth + 1
	if parent.IsRoot() {
		depth = 0
	}

	tx := m.begin()
	parent = parent.Clone()
	node := tx.newNode(m.clock, n, parent.ID, depth)
	parent.Children = append(parent.Children, node.ID)
	tx.put(node, parent)

	if err := m.commit(ctx, tx); err != nil {
		return nil, err
	}
	return node.Clone(), nil
}

// AddNodeAfter inserts n as the next sibling of refID, at refID's depth.
// The status of refID is left alone.
func (m *Memory) AddNodeAfter(ctx context.Context, refID int64, n *Node) (*Node, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ref, err := m.get(refID)
	if err != nil {
		return nil, err
	}
	if ref.IsRoot() {
		return nil, fmt.Errorf("%w: cannot add a sibling to the root", ErrInvariant)
	}

	parent, err := m.get(ref.ParentID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvariant, err)
	}

	pos := slices.Index(parent.Children, ref.ID)
	if pos < 0 {
		return nil, fmt.Errorf("%w: node %d detached from parent %d", ErrInvariant, ref.ID, parent.ID)
	}

	tx := m.begin()
	parent = parent.Clone()
	node := tx.newNode(m.clock, n, parent.ID, ref.Depth)
	parent.Children = slices.Insert(parent.Children, pos+1, node.ID)
	tx.put(node, parent)

	if err := m.commit(ctx, tx); err != nil {
		return nil, err
	}
	return node.Clone(), nil
}


// SuccessNode marks id as succeeded. Marking twice is a no-op.
func (m *Memory) SuccessNode(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	node, err := m.get(id)
	if err != nil {
		return err
	}
	if node.Status == StatusSuccess {
		return nil
	}

	node = node.Clone()
	node.Status = StatusSuccess

	tx := m.begin()
	tx.put(node)
	return m.commit(ctx, tx)
}

// DeleteNode removes a leaf node. The cursor falls back to the parent when it
// pointed at the deleted node.
func (m *Memory) DeleteNode(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	node, err := m.get(id)
	if err != nil {
		return err
	}
	if node.IsRoot() {
		return fmt.Errorf("%w: cannot delete the root", ErrInvariant)
	}
	if len(node.Children) > 0 {
		return fmt.Errorf("%w: node %d still has %d children", ErrInvariant, id, len(node.Children))
	}

	parent, err := m.get(node.ParentID)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvariant, err)
	}

	tx := m.begin()
	parent = parent.Clone()
	parent.Children = slices.DeleteFunc(parent.Children, func(c int64) bool { return c == id })
	tx.put(parent)
	tx.remove(id)
	if tx.current == id {
		tx.current = parent.ID
	}

	return m.commit(ctx, tx)
}

// SetCurrentNode moves the cursor.
func (m *Memory) SetCurrentNode(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, err := m.get(id); err != nil {
		return err
	}

	tx := m.begin()
	tx.current = id
	return m.commit(ctx, tx)
}

// CurrentNode returns the node under the cursor.
func (m *Memory) CurrentNode() *Node {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.index[m.current].Clone()
}

// GetNode returns a copy of the node with the given id.
func (m *Memory) GetNode(id int64) (*Node, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	node, err := m.get(id)
	if err != nil {
		return nil, err
	}
	return node.Clone(), nil
}

// AppendContent appends text to a node that has not succeeded yet.
func (m *Memory) AppendContent(ctx context.Context, id int64, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	node, err := m.get(id)
	if err != nil {
		return err
	}
	if node.Status == StatusSuccess {
		return fmt.Errorf("%w: node %d", ErrImmutable, id)
	}
	if text == "" {
		return nil
	}

	node = node.Clone()
	node.Content += text

	tx := m.begin()
	tx.put(node)
	return m.commit(ctx, tx)
}

// TodoNode returns the first pending node in pre-order depth-first order,
// or nil when every node has succeeded.
func (m *Memory) TodoNode() *Node {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var todo *Node
	m.walk(m.index[RootID], func(n *Node) bool {
		if !n.IsRoot() && n.IsPending() {
			todo = n.Clone()
			return false
		}
		return true
	})
	return todo
}

// Walk visits every node in pre-order, children in insertion order, until fn
// returns false. fn receives copies.
func (m *Memory) Walk(fn func(n *Node) bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	m.walk(m.index[RootID], func(n *Node) bool {
		return fn(n.Clone())
	})
}

func (m *Memory) walk(n *Node, fn func(*Node) bool) bool {
	if !fn(n) {
		return false
	}
	for _, child := range n.Children {
		if !m.walk(m.index[child], fn) {
			return false
		}
	}
	return true
}

// RelatedMessages returns the context chain of id: for every node on the
// path from the root (exclusive) down to id, its earlier siblings in order
// followed by the node itself. Nodes without content are skipped.
func (m *Memory) RelatedMessages(id int64) ([]llm.Message, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	node, err := m.get(id)
	if err != nil {
		return nil, err
	}

	// Path from the node up to, but excluding, the root.
	path := []*Node{}
	for n := node; !n.IsRoot(); {
		path = append(path, n)
		parent, ok := m.index[n.ParentID]
		if !ok {
			return nil, fmt.Errorf("%w: node %d detached from parent %d", ErrInvariant, n.ID, n.ParentID)
		}
		n = parent
	}
	slices.Reverse(path)

	messages := []llm.Message{}
	for _, n := range path {
		parent := m.index[n.ParentID]
		for _, sibling := range parent.Children {
			s := m.index[sibling]
			if s.Content != "" {
				messages = append(messages, llm.NewTextMessage(string(s.Role), s.Content))
			}
			if sibling == n.ID {
				break
			}
		}
	}
	return messages, nil
}

// PrevSibling returns the sibling immediately before id, or nil.
func (m *Memory) PrevSibling(id int64) (*Node, error) {
	return m.sibling(id, -1)
}

// NextSibling returns the sibling immediately after id, or nil.
func (m *Memory) NextSibling(id int64) (*Node, error) {
	return m.sibling(id, 1)
}

func (m *Memory) sibling(id int64, offset int) (*Node, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	node, err := m.get(id)
	if err != nil {
		return nil, err
	}
	if node.IsRoot() {
		return nil, nil
	}

	children := m.index[node.ParentID].Children
	pos := slices.Index(children, id) + offset
	if pos < 0 || pos >= len(children) {
		return nil, nil
	}
	return m.index[children[pos]].Clone(), nil
}

// Nodes returns copies of every node in pre-order, the root first.
func (m *Memory) Nodes() []*Node {
	nodes := []*Node{}
	m.Walk(func(n *Node) bool {
		nodes = append(nodes, n)
		return true
	})
	return nodes
}

// Len is the number of nodes, the root included.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.index)
}

// String renders the tree one node per line, indented by tree level.
func (m *Memory) String() string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var sb strings.Builder
	var render func(n *Node, level int)
	render = func(n *Node, level int) {
		if !n.IsRoot() {
			mark := " "
			if n.Status == StatusSuccess {
				mark = "x"
			}
			cursor := ""
			if n.ID == m.current {
				cursor = " <"
			}
			fmt.Fprintf(&sb, "%s[%s] %d %s/%s: %s%s\n",
				strings.Repeat("  ", level), mark, n.ID, n.Role, n.Action, preview(n.Content), cursor)
			level++
		}
		for _, child := range n.Children {
			render(m.index[child], level)
		}
	}
	render(m.index[RootID], 0)
	return sb.String()
}

func preview(content string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(content), "\n")
	if len(line) > 60 {
		return line[:60] + "..."
	}
	return line
}

func (m *Memory) get(id int64) (*Node, error) {
	node, ok := m.index[id]
	if !ok {
		return nil, NodeNotFoundError{ID: id}
	}
	return node, nil
}

// change is the staged outcome of one mutation. Nodes in puts are copies
// owned by the change until commit hands them to the arena.
type change struct {
	puts    []*Node
	removed []int64
	nextID  int64
	current int64
}

func (m *Memory) begin() *change {
	return &change{nextID: m.nextID, current: m.current}
}

func (c *change) put(nodes ...*Node) {
	c.puts = append(c.puts, nodes...)
}

func (c *change) remove(id int64) {
	c.removed = append(c.removed, id)
}

// newNode stages a copy of template under the next free id.
func (c *change) newNode(clk clock.Clock, template *Node, parentID int64, depth int) *Node {
	node := &Node{
		ID:        c.nextID,
		ParentID:  parentID,
		Role:      template.Role,
		Action:    template.Action,
		Content:   template.Content,
		Status:    StatusPending,
		Depth:     depth,
		CreatedAt: clk.Now(),
	}
	c.nextID++
	return node
}

// commit writes c and the tree metadata in one batch, then applies c to the
// arena. On error the arena is left untouched.
func (m *Memory) commit(ctx context.Context, c *change) error {
	ops := make([]storage.Op, 0, len(c.removed)+len(c.puts)+1)
	for _, id := range c.removed {
		ops = append(ops, storage.Op{Bucket: Bucket, Key: key(id), Delete: true})
	}
	for _, n := range c.puts {
		value, err := json.Marshal(n)
		if err != nil {
			return fmt.Errorf("failed to encode memory node %d: %w", n.ID, err)
		}
		ops = append(ops, storage.Op{Bucket: Bucket, Key: key(n.ID), Value: value})
	}

	value, err := json.Marshal(meta{NextID: c.nextID, Current: c.current})
	if err != nil {
		return fmt.Errorf("failed to encode memory metadata: %w", err)
	}
	ops = append(ops, storage.Op{Bucket: Bucket, Key: metaKey, Value: value})

	if err := m.driver.Batch(ctx, ops); err != nil {
		return fmt.Errorf("failed to persist memory: %w", err)
	}

	for _, id := range c.removed {
		delete(m.index, id)
	}
	for _, n := range c.puts {
		m.index[n.ID] = n
	}
	m.nextID = c.nextID
	m.current = c.current
	return nil
}

func key(id int64) string {
	return strconv.FormatInt(id, 10)
}
