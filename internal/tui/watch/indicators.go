package watch

import (
	"strings"
	"time"
)

const pulseWidth = 5

// Pulse lights up when an event arrives and fades one dot every two seconds.
type Pulse struct {
	lit       int
	lastEvent time.Time
	now       func() time.Time
}

func NewPulse() Pulse {
	return Pulse{now: time.Now}
}

func (p *Pulse) OnEvent() {
	p.lit = pulseWidth
	p.lastEvent = p.now()
}

// Decay recomputes the lit dots from the time since the last event.
func (p *Pulse) Decay() {
	if p.lit == 0 {
		return
	}
	faded := int(p.now().Sub(p.lastEvent) / (2 * time.Second))
	p.lit = max(pulseWidth-faded, 0)
}

func (p Pulse) Lit() int { return p.lit }

func (p Pulse) LastEvent() time.Time { return p.lastEvent }

func (p Pulse) Render(theme Theme) string {
	var b strings.Builder
	for i := range pulseWidth {
		if i < p.lit {
			b.WriteString(theme.PulseOn.Render("●"))
		} else {
			b.WriteString(theme.PulseOff.Render("○"))
		}
	}
	return b.String()
}
