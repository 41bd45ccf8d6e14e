package types

import "github.com/qnet-project/qnet-core/params"

// PingHistory is the rolling ping-success record a node's reputation and
// reward eligibility are derived from (spec.md §3 PingHistory). Window and
// required success ratio vary by NodeType, so History grows up to the
// node type's own window (Full/Super: 60, Light: 1) and is then
// overwritten in place.
type PingHistory struct {
	NodeType params.NodeType
	History  []bool // ring buffer; once full, Cursor%len is the oldest slot
	Cursor   int
}

// windowSize returns the ping window spec.md §3 defines for this node's type.
func (p *PingHistory) windowSize() int {
	switch p.NodeType {
	case params.NodeTypeLight:
		return params.LightPingWindow
	case params.NodeTypeFull:
		return params.FullPingWindow
	case params.NodeTypeSuper:
		return params.SuperPingWindow
	default:
		return params.LightPingWindow
	}
}

// Record appends a ping result, evicting the oldest entry once the
// type-specific window is full.
func (p *PingHistory) Record(success bool) {
	w := p.windowSize()
	if len(p.History) < w {
		p.History = append(p.History, success)
		return
	}
	p.History[p.Cursor%w] = success
	p.Cursor++
}

// SuccessRatio is the fraction of recorded pings (within the window) that
// succeeded.
func (p *PingHistory) SuccessRatio() float64 {
	if len(p.History) == 0 {
		return 0
	}
	ok := 0
	for _, b := range p.History {
		if b {
			ok++
		}
	}
	return float64(ok) / float64(len(p.History))
}

// MeetsThreshold reports whether this node's ping record satisfies the
// type-specific eligibility requirement of spec.md §3:
//   - Light: LightPingRequired successes within LightPingWindow (1-of-1)
//   - Full:  >= FullPingSuccessRatio over FullPingWindow
//   - Super: >= SuperPingSuccessRatio over SuperPingWindow
func (p *PingHistory) MeetsThreshold() bool {
	w := p.windowSize()
	if len(p.History) < w {
		return false
	}
	switch p.NodeType {
	case params.NodeTypeLight:
		return p.SuccessRatio() >= 1.0
	case params.NodeTypeFull:
		return p.SuccessRatio() >= params.FullPingSuccessRatio
	case params.NodeTypeSuper:
		return p.SuccessRatio() >= params.SuperPingSuccessRatio
	default:
		return false
	}
}
