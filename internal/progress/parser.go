package progress

import (
	"strings"
	"sync"
)

// Snapshot is the aggregate progress at an item boundary.
// 0 <= Current <= Total and Total > 0 for every emitted snapshot.
type Snapshot struct {
	Current    int
	Total      int
	Percentage float64
	Label      string
}

// NewSnapshot builds a snapshot with Current clamped to [0, Total].
func NewSnapshot(current, total int, label string) Snapshot {
	if total < 0 {
		total = 0
	}
	if current < 0 {
		current = 0
	}
	if current > total {
		current = total
	}
	s := Snapshot{Current: current, Total: total, Label: label}
	if total > 0 {
		s.Percentage = 100 * float64(current) / float64(total)
	}
	return s
}

// ItemStatus is the outcome recorded for one playlist entry.
type ItemStatus string

const (
	ItemPending   ItemStatus = "pending"
	ItemSucceeded ItemStatus = "succeeded"
	ItemFailed    ItemStatus = "failed"
)

// Item records what was seen between two item boundaries.
type Item struct {
	Index  int
	Label  string
	Status ItemStatus
	Err    string
}

// Failed reports whether an ERROR line was attributed to the item.
func (i Item) Failed() bool { return i.Status == ItemFailed }

// Summary is the parser state after an invocation.
type Summary struct {
	Total      int
	Current    int
	Label      string
	Items      []Item
	Errors     []string
	Lines      int
	Suppressed int
	Recovered  int
}

// Failures returns the items marked failed.
func (s Summary) Failures() []Item {
	var out []Item
	for _, item := range s.Items {
		if item.Failed() {
			out = append(out, item)
		}
	}
	return out
}

// Options configures a Parser.
type Options struct {
	Classifier Classifier
	Suppress   []string
	OnProgress func(Snapshot)
	OnLog      func(string)
}

// Parser consumes lines from one invocation. It is safe for concurrent use,
// though Runner delivers lines sequentially.
type Parser struct {
	mu         sync.Mutex
	classifier Classifier
	suppress   []string
	onProgress func(Snapshot)
	onLog      func(string)

	total        int
	current      int
	currentLabel string
	summary      Summary
}

// NewParser constructs a parser. A nil classifier defaults to YtdlpClassifier.
func NewParser(opts Options) *Parser {
	classifier := opts.Classifier
	if classifier == nil {
		classifier = YtdlpClassifier{}
	}
	suppress := make([]string, 0, len(opts.Suppress))
	for _, pattern := range opts.Suppress {
		if pattern = strings.ToLower(strings.TrimSpace(pattern)); pattern != "" {
			suppress = append(suppress, pattern)
		}
	}
	return &Parser{
		classifier: classifier,
		suppress:   suppress,
		onProgress: opts.OnProgress,
		onLog:      opts.OnLog,
	}
}

// Feed classifies one line, updates state, and invokes callbacks.
func (p *Parser) Feed(line string) {
	p.mu.Lock()
	p.summary.Lines++
	suppressed := p.suppressed(line)
	if suppressed {
		p.summary.Suppressed++
	}
	var snapshots []Snapshot
	for _, event := range p.classify(line) {
		if snap, ok := p.apply(event); ok {
			snapshots = append(snapshots, snap)
		}
	}
	onProgress, onLog := p.onProgress, p.onLog
	p.mu.Unlock()

	if !suppressed && onLog != nil {
		onLog(line)
	}
	if onProgress != nil {
		for _, snap := range snapshots {
			onProgress(snap)
		}
	}
}

// Summary returns a copy of the accumulated state.
func (p *Parser) Summary() Summary {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := p.summary
	out.Total = p.total
	out.Current = p.current
	out.Label = p.currentLabel
	out.Items = append([]Item(nil), p.summary.Items...)
	out.Errors = append([]string(nil), p.summary.Errors...)
	return out
}

func (p *Parser) classify(line string) (events []Event) {
	defer func() {
		if r := recover(); r != nil {
			p.summary.Recovered++
			events = nil
		}
	}()
	return p.classifier.Classify(line)
}

func (p *Parser) suppressed(line string) bool {
	if len(p.suppress) == 0 {
		return false
	}
	lower := strings.ToLower(line)
	for _, pattern := range p.suppress {
		if strings.Contains(lower, pattern) {
			return true
		}
	}
	return false
}

func (p *Parser) apply(event Event) (Snapshot, bool) {
	switch event.Kind {
	case EventTotalKnown:
		if event.Total > p.total {
			p.total = event.Total
		}
	case EventItemBoundary:
		if p.total == 0 && event.Total > 0 {
			p.total = event.Total
		}
		if event.Index > p.total {
			p.total = event.Index
		}
		if event.Index > p.current {
			p.current = event.Index
		}
		p.summary.Items = append(p.summary.Items, Item{Index: event.Index, Status: ItemPending})
		if p.total > 0 {
			return NewSnapshot(p.current, p.total, p.currentLabel), true
		}
	case EventLabel:
		if event.Text == "" {
			return Snapshot{}, false
		}
		p.currentLabel = event.Text
		if item := p.lastItem(); item != nil {
			item.Label = event.Text
		}
	case EventItemSucceeded:
		if item := p.lastItem(); item != nil && item.Status == ItemPending {
			item.Status = ItemSucceeded
		}
	case EventItemFailed:
		if item := p.lastItem(); item != nil {
			item.Status = ItemFailed
			item.Err = event.Text
		} else {
			p.summary.Errors = append(p.summary.Errors, event.Text)
		}
	}
	return Snapshot{}, false
}

func (p *Parser) lastItem() *Item {
	if len(p.summary.Items) == 0 {
		return nil
	}
	return &p.summary.Items[len(p.summary.Items)-1]
}
