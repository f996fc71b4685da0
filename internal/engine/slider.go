package engine

import (
	"sort"
	"time"
)

// Slider selects one launch time among the finished paths. Times are
// registered as paths finish but only published by Redraw.
type Slider struct {
	registered []time.Time
	published  []time.Time
	index      int
	onSlide    func(time.Time)
}

func newSlider(onSlide func(time.Time)) *Slider {
	return &Slider{onSlide: onSlide}
}

// Register records a launch time, keeping times sorted and distinct.
func (s *Slider) Register(t time.Time) {
	i := sort.Search(len(s.registered), func(i int) bool {
		return !s.registered[i].Before(t)
	})
	if i < len(s.registered) && s.registered[i].Equal(t) {
		return
	}
	s.registered = append(s.registered, time.Time{})
	copy(s.registered[i+1:], s.registered[i:])
	s.registered[i] = t
}

// Redraw publishes the registered times and selects the earliest.
func (s *Slider) Redraw() {
	s.published = append(s.published[:0], s.registered...)
	s.index = 0
	if len(s.published) > 0 {
		s.slide()
	}
}

func (s *Slider) clear() {
	s.registered = nil
	s.published = nil
	s.index = 0
}

// Times returns the published launch times in ascending order.
func (s *Slider) Times() []time.Time {
	return append([]time.Time(nil), s.published...)
}

// Len returns the number of published times.
func (s *Slider) Len() int {
	return len(s.published)
}

// Visible reports whether there is more than one time to choose from.
func (s *Slider) Visible() bool {
	return len(s.published) > 1
}

// Value returns the selected index.
func (s *Slider) Value() int {
	return s.index
}

// Current returns the selected launch time.
func (s *Slider) Current() (time.Time, bool) {
	if len(s.published) == 0 {
		return time.Time{}, false
	}
	return s.published[s.index], true
}

// SetValue selects an index, clamped to the published range.
func (s *Slider) SetValue(i int) bool {
	if len(s.published) == 0 {
		return false
	}
	if i < 0 {
		i = 0
	}
	if i >= len(s.published) {
		i = len(s.published) - 1
	}
	s.index = i
	s.slide()
	return true
}

// SetValueByLaunchTime selects the given time if it is published.
func (s *Slider) SetValueByLaunchTime(t time.Time) bool {
	for i, pt := range s.published {
		if pt.Equal(t) {
			return s.SetValue(i)
		}
	}
	return false
}

// Step moves the selection by delta positions.
func (s *Slider) Step(delta int) bool {
	return s.SetValue(s.index + delta)
}

func (s *Slider) slide() {
	if s.onSlide != nil {
		s.onSlide(s.published[s.index])
	}
}
