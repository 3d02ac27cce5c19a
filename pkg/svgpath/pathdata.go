package svgpath

import (
	"fmt"
	"strconv"

	"github.com/aretw0/plotline/pkg/domain"
)

// PathData parses the value of a path element's d attribute.
//
// A new subpath begins at every moveto and at the first drawing command after a
// closepath. Only segment end points are computed; control points are consumed but not
// kept. A moveto that is not followed by a drawing command contributes nothing.
func PathData(d string) ([]domain.Subpath, error) {
	p := &pathBuilder{lx: &lexer{s: d}}
	if err := p.run(); err != nil {
		return nil, err
	}
	p.flush()
	return p.out, nil
}

type pathBuilder struct {
	lx      *lexer
	started bool

	cur, start domain.Point
	segs       []domain.Segment
	out        []domain.Subpath
}

func (p *pathBuilder) flush() {
	if len(p.segs) > 0 {
		p.out = append(p.out, domain.Subpath{Segments: p.segs})
	}
	p.segs = nil
}

func (p *pathBuilder) add(kind domain.SegmentKind, end domain.Point) {
	p.segs = append(p.segs, domain.Segment{Kind: kind, Start: p.cur, End: end})
	p.cur = end
}

func (p *pathBuilder) run() error {
	var cmd byte
	for {
		p.lx.skipSpace()
		if p.lx.done() {
			return nil
		}

		if c, ok := p.lx.command(); ok {
			if !p.started && c != 'M' && c != 'm' {
				return fmt.Errorf("path data must start with a moveto, got %c", c)
			}
			p.started = true
			cmd = c
		} else if cmd == 0 {
			return fmt.Errorf("path data must start with a command, got %q", p.lx.rest())
		}

		if cmd == 'Z' || cmd == 'z' {
			p.close()
			// Numbers directly after a closepath are not valid.
			cmd = 0
			continue
		}

		if err := p.step(cmd); err != nil {
			return fmt.Errorf("command %c: %w", cmd, err)
		}

		// Extra coordinate pairs after a moveto are implicit linetos.
		switch cmd {
		case 'M':
			cmd = 'L'
		case 'm':
			cmd = 'l'
		}
	}
}

func (p *pathBuilder) close() {
	if p.cur != p.start && len(p.segs) > 0 {
		p.add(domain.SegmentLine, p.start)
	}
	p.flush()
	p.cur = p.start
}

// step consumes the arguments of one command occurrence.
func (p *pathBuilder) step(cmd byte) error {
	rel := cmd >= 'a' && cmd <= 'z'
	abs := func(x, y float64) domain.Point {
		if rel {
			return domain.Point{X: p.cur.X + x, Y: p.cur.Y + y}
		}
		return domain.Point{X: x, Y: y}
	}

	switch cmd {
	case 'M', 'm':
		x, y, err := p.lx.pair()
		if err != nil {
			return err
		}
		p.flush()
		p.cur = abs(x, y)
		p.start = p.cur
	case 'L', 'l':
		x, y, err := p.lx.pair()
		if err != nil {
			return err
		}
		p.add(domain.SegmentLine, abs(x, y))
	case 'H', 'h':
		x, err := p.lx.number()
		if err != nil {
			return err
		}
		end := domain.Point{X: x, Y: p.cur.Y}
		if rel {
			end.X = p.cur.X + x
		}
		p.add(domain.SegmentLine, end)
	case 'V', 'v':
		y, err := p.lx.number()
		if err != nil {
			return err
		}
		end := domain.Point{X: p.cur.X, Y: y}
		if rel {
			end.Y = p.cur.Y + y
		}
		p.add(domain.SegmentLine, end)
	case 'C', 'c':
		if err := p.lx.skipNumbers(4); err != nil {
			return err
		}
		x, y, err := p.lx.pair()
		if err != nil {
			return err
		}
		p.add(domain.SegmentCubic, abs(x, y))
	case 'S', 's':
		if err := p.lx.skipNumbers(2); err != nil {
			return err
		}
		x, y, err := p.lx.pair()
		if err != nil {
			return err
		}
		p.add(domain.SegmentCubic, abs(x, y))
	case 'Q', 'q':
		if err := p.lx.skipNumbers(2); err != nil {
			return err
		}
		x, y, err := p.lx.pair()
		if err != nil {
			return err
		}
		p.add(domain.SegmentQuadratic, abs(x, y))
	case 'T', 't':
		x, y, err := p.lx.pair()
		if err != nil {
			return err
		}
		p.add(domain.SegmentQuadratic, abs(x, y))
	case 'A', 'a':
		// rx ry x-axis-rotation large-arc-flag sweep-flag x y
		if err := p.lx.skipNumbers(3); err != nil {
			return err
		}
		if err := p.lx.flag(); err != nil {
			return err
		}
		if err := p.lx.flag(); err != nil {
			return err
		}
		x, y, err := p.lx.pair()
		if err != nil {
			return err
		}
		p.add(domain.SegmentArc, abs(x, y))
	default:
		return fmt.Errorf("unsupported command")
	}
	return nil
}

// lexer scans path data and point lists.
type lexer struct {
	s   string
	pos int
}

func (l *lexer) done() bool { return l.pos >= len(l.s) }

func (l *lexer) rest() string {
	if len(l.s)-l.pos > 16 {
		return l.s[l.pos:l.pos+16] + "..."
	}
	return l.s[l.pos:]
}

func (l *lexer) skipSpace() {
	for !l.done() {
		switch l.s[l.pos] {
		case ' ', '\t', '\n', '\r', '\f', ',':
			l.pos++
		default:
			return
		}
	}
}

// more reports whether another token follows.
func (l *lexer) more() bool {
	l.skipSpace()
	return !l.done()
}

func (l *lexer) command() (byte, bool) {
	c := l.s[l.pos]
	switch c {
	case 'M', 'm', 'Z', 'z', 'L', 'l', 'H', 'h', 'V', 'v',
		'C', 'c', 'S', 's', 'Q', 'q', 'T', 't', 'A', 'a':
		l.pos++
		return c, true
	}
	return 0, false
}

func (l *lexer) number() (float64, error) {
	l.skipSpace()
	start := l.pos
	if !l.done() && (l.s[l.pos] == '+' || l.s[l.pos] == '-') {
		l.pos++
	}
	digits := l.digits()
	if !l.done() && l.s[l.pos] == '.' {
		l.pos++
		digits += l.digits()
	}
	if digits == 0 {
		l.pos = start
		return 0, fmt.Errorf("expected number at %q", l.rest())
	}
	if !l.done() && (l.s[l.pos] == 'e' || l.s[l.pos] == 'E') {
		mark := l.pos
		l.pos++
		if !l.done() && (l.s[l.pos] == '+' || l.s[l.pos] == '-') {
			l.pos++
		}
		if l.digits() == 0 {
			l.pos = mark
		}
	}
	return strconv.ParseFloat(l.s[start:l.pos], 64)
}

func (l *lexer) digits() int {
	n := 0
	for !l.done() && l.s[l.pos] >= '0' && l.s[l.pos] <= '9' {
		l.pos++
		n++
	}
	return n
}

func (l *lexer) pair() (float64, float64, error) {
	x, err := l.number()
	if err != nil {
		return 0, 0, err
	}
	y, err := l.number()
	if err != nil {
		return 0, 0, err
	}
	return x, y, nil
}

func (l *lexer) skipNumbers(n int) error {
	for i := 0; i < n; i++ {
		if _, err := l.number(); err != nil {
			return err
		}
	}
	return nil
}

// flag reads a single 0/1 arc flag, which may be packed against the next token.
func (l *lexer) flag() error {
	l.skipSpace()
	if l.done() || (l.s[l.pos] != '0' && l.s[l.pos] != '1') {
		return fmt.Errorf("expected arc flag at %q", l.rest())
	}
	l.pos++
	return nil
}
