package script

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strconv"

	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/Sumatoshi-tech/symtree/pkg/symtree"
)

// Status is the outcome of one step.
type Status string

const (
	// StatusPass means the step ran and met its expectations.
	StatusPass Status = "pass"
	// StatusFail means the step ran but a check did not hold.
	StatusFail Status = "fail"
	// StatusError means the step could not run; later steps are skipped.
	StatusError Status = "error"
	// StatusSkipped marks steps after an error.
	StatusSkipped Status = "skipped"
)

// Result records one executed step.
type Result struct {
	Index  int
	Op     string
	Status Status
	Detail string
}

// Report is the outcome of a script run.
type Report struct {
	Name    string
	Results []Result
	Tree    *symtree.Tree
}

// Passed reports whether every step passed.
func (r *Report) Passed() bool {
	return r.Count(StatusPass) == len(r.Results)
}

// Count returns the number of steps with the given status.
func (r *Report) Count(status Status) int {
	count := 0

	for _, res := range r.Results {
		if res.Status == status {
			count++
		}
	}

	return count
}

type runner struct {
	tree   *symtree.Tree
	logger *slog.Logger
	nodes  map[string]symtree.NodeID
	navs   map[string]*symtree.Navigator
}

type handler func(r *runner, step Step) (string, error)

var handlers map[string]handler

func init() {
	handlers = map[string]handler{
		"build":             (*runner).build,
		"insert":            (*runner).insert,
		"remove":            (*runner).remove,
		"delete":            (*runner).deleteRange,
		"offset":            (*runner).offset,
		"char_offset":       (*runner).charOffset,
		"position":          (*runner).position,
		"compare":           (*runner).compare,
		"advance":           (*runner).advance,
		"track":             (*runner).track,
		"untrack":           (*runner).untrack,
		"expect_nav":        (*runner).expectNav,
		"begin":             (*runner).begin,
		"commit":            (*runner).commit,
		"expect_len":        (*runner).expectLen,
		"expect_chars":      (*runner).expectChars,
		"expect_text":       (*runner).expectText,
		"expect_layout":     (*runner).expectLayout,
		"expect_generation": (*runner).expectGeneration,
		"validate":          (*runner).validate,
		"hibernate":         (*runner).hibernate,
	}
}

// Run executes the script on a fresh tree built from opts and the script options.
func Run(sc *Script, opts symtree.Options) (*Report, error) {
	if sc.Options.CharUnit != "" {
		counter, err := symtree.CharCounterByName(sc.Options.CharUnit)
		if err != nil {
			return nil, err
		}

		opts.CharCounter = counter
	}

	opts.ValidateOnCommit = opts.ValidateOnCommit || sc.Options.ValidateOnCommit
	if opts.Name == "" {
		opts.Name = sc.Name
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	tree := symtree.New(opts)
	r := &runner{
		tree:   tree,
		logger: logger,
		nodes:  map[string]symtree.NodeID{"root": tree.Root()},
		navs:   map[string]*symtree.Navigator{},
	}

	report := &Report{Name: sc.Name, Tree: tree}
	stopped := false

	for idx, step := range sc.Steps {
		res := Result{Index: idx, Op: step.Op}

		if stopped {
			res.Status = StatusSkipped
			report.Results = append(report.Results, res)

			continue
		}

		res.Status, res.Detail = r.run(step)
		stopped = res.Status == StatusError

		r.logger.Debug("script step", "index", idx, "op", step.Op, "status", res.Status, "detail", res.Detail)
		report.Results = append(report.Results, res)
	}

	return report, nil
}

func (r *runner) run(step Step) (Status, string) {
	fn, ok := handlers[step.Op]
	if !ok {
		return StatusError, fmt.Sprintf("unknown op %q", step.Op)
	}

	detail, err := fn(r, step)

	if step.Error != "" {
		want := errorNames[step.Error]

		switch {
		case err == nil:
			return StatusFail, fmt.Sprintf("expected %s error, got %s", step.Error, detail)
		case errors.Is(err, want):
			return StatusPass, err.Error()
		default:
			return StatusFail, fmt.Sprintf("expected %s error, got %v", step.Error, err)
		}
	}

	switch {
	case err == nil:
		return StatusPass, detail
	case errors.Is(err, ErrExpectation):
		return StatusFail, err.Error()
	default:
		return StatusError, err.Error()
	}
}

// check compares a result with the step's expect value by its printed form.
func check(step Step, got any) (string, error) {
	detail := fmt.Sprint(got)
	if step.Expect == nil {
		return detail, nil
	}

	if want := fmt.Sprint(step.Expect); want != detail {
		return detail, fmt.Errorf("%w: want %s, got %s", ErrExpectation, want, detail)
	}

	return detail, nil
}

func (r *runner) node(label string) (symtree.NodeID, error) {
	id, ok := r.nodes[label]
	if !ok {
		return symtree.NodeID{}, fmt.Errorf("%w: node %q", ErrUnknownLabel, label)
	}

	return id, nil
}

func (r *runner) navigator(label string) (*symtree.Navigator, error) {
	nav, ok := r.navs[label]
	if !ok {
		return nil, fmt.Errorf("%w: navigator %q", ErrUnknownLabel, label)
	}

	return nav, nil
}

func (r *runner) resolve(ref *Ref) (symtree.Position, error) {
	if ref == nil {
		return symtree.Position{}, fmt.Errorf("%w: missing position reference", ErrInvalidScript)
	}

	if ref.Offset != nil {
		pos, ok := r.tree.PositionAt(*ref.Offset)
		if !ok {
			return symtree.Position{}, fmt.Errorf("%w: offset %d of %d", symtree.ErrInvalidPosition, *ref.Offset, r.tree.Len())
		}

		return pos, nil
	}

	id, err := r.node(ref.Node)
	if err != nil {
		return symtree.Position{}, err
	}

	switch {
	case ref.Edge == "start":
		return r.tree.Start(id)
	case ref.Edge == "end":
		return r.tree.End(id)
	case ref.Local != nil:
		return symtree.Position{Node: id, Offset: *ref.Local}, nil
	default:
		return symtree.Position{Node: id}, nil
	}
}

// describe names a position by the node's label, or by the node offset as #n.
func (r *runner) describe(pos symtree.Position) string {
	var labels []string

	for label, id := range r.nodes {
		if id == pos.Node {
			labels = append(labels, label)
		}
	}

	local := strconv.Itoa(pos.Offset)
	if pos.FromEnd {
		local = "end-" + local
	}

	if len(labels) > 0 {
		slices.Sort(labels)

		return labels[0] + "+" + local
	}

	offset, err := r.tree.NodeOffset(pos.Node)
	if err != nil {
		return pos.String()
	}

	return fmt.Sprintf("#%d+%s", offset, local)
}

func direction(name string) symtree.Direction {
	if name == "backward" {
		return symtree.Backward
	}

	return symtree.Forward
}

func (r *runner) build(step Step) (string, error) {
	err := r.tree.Build(step.Outline)
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("%d items, %d symbols", len(step.Outline), r.tree.Len()), nil
}

func (r *runner) insert(step Step) (string, error) {
	if step.Content == nil {
		return "", fmt.Errorf("%w: insert without content", ErrInvalidScript)
	}

	pos, err := r.resolve(step.At)
	if err != nil {
		return "", err
	}

	var id symtree.NodeID

	err = r.tree.Update(func() error {
		var insertErr error

		id, insertErr = r.insertOutline(pos, *step.Content)

		return insertErr
	})
	if err != nil {
		return "", err
	}

	if step.As != "" {
		r.nodes[step.As] = id
	}

	offset, err := r.tree.NodeOffset(id)
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("%s at %d", step.Content.Kind, offset), nil
}

func (r *runner) insertOutline(pos symtree.Position, item symtree.Outline) (symtree.NodeID, error) {
	content, err := item.Content()
	if err != nil {
		return symtree.NodeID{}, err
	}

	id, err := r.tree.Insert(pos, content)
	if err != nil {
		return symtree.NodeID{}, err
	}

	for _, child := range item.Children {
		end, err := r.tree.End(id)
		if err != nil {
			return symtree.NodeID{}, err
		}

		_, err = r.insertOutline(end, child)
		if err != nil {
			return symtree.NodeID{}, err
		}
	}

	return id, nil
}

func (r *runner) remove(step Step) (string, error) {
	id, err := r.node(step.Node)
	if err != nil {
		return "", err
	}

	err = r.tree.Remove(id)
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("removed %s, %d symbols left", step.Node, r.tree.Len()), nil
}

func (r *runner) deleteRange(step Step) (string, error) {
	from, err := r.resolve(step.At)
	if err != nil {
		return "", err
	}

	to, err := r.resolve(step.To)
	if err != nil {
		return "", err
	}

	removed, err := r.tree.DeleteRange(from, to)
	if err != nil {
		return "", err
	}

	return check(step, removed)
}

func (r *runner) offset(step Step) (string, error) {
	if step.At == nil {
		id, err := r.node(step.Node)
		if err != nil {
			return "", err
		}

		offset, err := r.tree.NodeOffset(id)
		if err != nil {
			return "", err
		}

		return check(step, offset)
	}

	pos, err := r.resolve(step.At)
	if err != nil {
		return "", err
	}

	offset, err := r.tree.OffsetOf(pos)
	if err != nil {
		return "", err
	}

	return check(step, offset)
}

func (r *runner) charOffset(step Step) (string, error) {
	pos, err := r.resolve(step.At)
	if err != nil {
		return "", err
	}

	offset, err := r.tree.CharOffsetOf(pos)
	if err != nil {
		return "", err
	}

	return check(step, offset)
}

func (r *runner) position(step Step) (string, error) {
	var (
		pos symtree.Position
		ok  = true
	)

	if step.At != nil && step.At.Offset != nil {
		pos, ok = r.tree.PositionAt(*step.At.Offset)
	} else {
		var err error

		pos, err = r.resolve(step.At)
		if err != nil {
			return "", err
		}
	}

	if !ok {
		return check(step, "none")
	}

	detail, err := check(step, r.describe(pos))
	if err == nil && step.As != "" {
		r.nodes[step.As] = pos.Node
	}

	return detail, err
}

func (r *runner) compare(step Step) (string, error) {
	first, err := r.resolve(step.At)
	if err != nil {
		return "", err
	}

	second, err := r.resolve(step.To)
	if err != nil {
		return "", err
	}

	ord, err := r.tree.Compare(first, second)
	if err != nil {
		return "", err
	}

	return check(step, ord)
}

func (r *runner) advance(step Step) (string, error) {
	pos, err := r.resolve(step.At)
	if err != nil {
		return "", err
	}

	next, ok, err := r.tree.Advance(pos, direction(step.Dir))
	if err != nil {
		return "", err
	}

	if !ok {
		return check(step, "none")
	}

	offset, err := r.tree.OffsetOf(next)
	if err != nil {
		return "", err
	}

	return check(step, offset)
}

func (r *runner) track(step Step) (string, error) {
	pos, err := r.resolve(step.At)
	if err != nil {
		return "", err
	}

	nav, err := r.tree.Track(pos, direction(step.Gravity))
	if err != nil {
		return "", err
	}

	if old, ok := r.navs[step.As]; ok {
		old.Close()
	}

	r.navs[step.As] = nav

	offset, err := nav.Offset()
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("%s at %d, gravity %s", step.As, offset, nav.Gravity()), nil
}

func (r *runner) untrack(step Step) (string, error) {
	nav, err := r.navigator(step.Nav)
	if err != nil {
		return "", err
	}

	nav.Close()
	delete(r.navs, step.Nav)

	return fmt.Sprintf("%d navigators left", r.tree.Navigators()), nil
}

func (r *runner) expectNav(step Step) (string, error) {
	nav, err := r.navigator(step.Nav)
	if err != nil {
		return "", err
	}

	offset, err := nav.Offset()
	if err != nil {
		return "", err
	}

	return check(step, offset)
}

func (r *runner) begin(Step) (string, error) {
	r.tree.Begin()

	return "scope opened", nil
}

func (r *runner) commit(Step) (string, error) {
	err := r.tree.Commit()
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("generation %d", r.tree.Generation()), nil
}

func (r *runner) expectLen(step Step) (string, error) {
	return check(step, r.tree.Len())
}

func (r *runner) expectChars(step Step) (string, error) {
	return check(step, r.tree.CharLen())
}

func (r *runner) expectText(step Step) (string, error) {
	return check(step, r.tree.Text())
}

func (r *runner) expectGeneration(step Step) (string, error) {
	return check(step, r.tree.Generation())
}

func (r *runner) expectLayout(step Step) (string, error) {
	got := r.tree.Layout()

	want := fmt.Sprint(step.Expect)
	if want == got {
		return got, nil
	}

	dmp := diffmatchpatch.New()

	return got, fmt.Errorf("%w: layout differs: %s", ErrExpectation, dmp.DiffPrettyText(dmp.DiffMain(want, got, false)))
}

func (r *runner) validate(Step) (string, error) {
	err := r.tree.Validate()
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("%d symbols, %d chars", r.tree.Len(), r.tree.CharLen()), nil
}

func (r *runner) hibernate(Step) (string, error) {
	alloc := r.tree.Allocator()

	threshold := alloc.HibernationThreshold
	alloc.HibernationThreshold = 0
	alloc.Hibernate()
	alloc.HibernationThreshold = threshold

	err := alloc.Boot()
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("%d nodes restored", alloc.Used()), nil
}
