// Пакет publication — конечный автомат состояния публикации изображения.
//
// Два состояния: draft и published. Переходы:
//   - draft → published (publish)
//   - published → draft (unpublish, одновременно снимает featured)
//
// Признак featured допустим только в состоянии published.
// Автомат чистый: он не хранит состояние, а вычисляет результат
// перехода от текущего состояния изображения.
package publication

import (
	"fmt"
	"time"
)

// State — состояние публикации изображения.
type State string

const (
	// StateDraft — черновик, виден только владельцу
	StateDraft State = "draft"
	// StatePublished — опубликовано в публичной галерее
	StatePublished State = "published"
)

// Event — событие перехода состояния публикации.
type Event string

const (
	EventPublish   Event = "publish"
	EventUnpublish Event = "unpublish"
	EventFeature   Event = "feature"
	EventUnfeature Event = "unfeature"
)

// validTransitions — матрица допустимых переходов состояния.
// Ключ — текущее состояние, значение — набор допустимых событий.
var validTransitions = map[State]map[Event]bool{
	StateDraft:     {EventPublish: true},
	StatePublished: {EventUnpublish: true, EventFeature: true, EventUnfeature: true},
}

// Snapshot — снимок состояния публикации изображения.
type Snapshot struct {
	State       State
	Featured    bool
	PublishedAt *time.Time
}

// StateOf возвращает состояние публикации по флагу published.
func StateOf(published bool) State {
	if published {
		return StatePublished
	}
	return StateDraft
}

// CanApply проверяет, допустимо ли событие в текущем состоянии.
func CanApply(current State, event Event) bool {
	events, ok := validTransitions[current]
	if !ok {
		return false
	}
	return events[event]
}

// Apply вычисляет результат применения события к снимку состояния.
// Переход unpublish одновременно снимает признак featured:
// черновик не может оставаться избранным.
//
// Ошибки:
//   - INVALID_TRANSITION — событие недопустимо в текущем состоянии
func Apply(current Snapshot, event Event, now time.Time) (Snapshot, error) {
	if !CanApply(current.State, event) {
		return Snapshot{}, &TransitionError{
			Code: "INVALID_TRANSITION",
			Message: fmt.Sprintf("событие %s недопустимо в состоянии %s",
				event, current.State),
		}
	}

	next := current
	switch event {
	case EventPublish:
		next.State = StatePublished
		t := now.UTC()
		next.PublishedAt = &t
	case EventUnpublish:
		next.State = StateDraft
		next.Featured = false
		next.PublishedAt = nil
	case EventFeature:
		next.Featured = true
	case EventUnfeature:
		next.Featured = false
	}

	return next, nil
}

// TransitionError — ошибка перехода состояния публикации.
type TransitionError struct {
	Code    string // Машиночитаемый код (INVALID_TRANSITION)
	Message string // Человекочитаемое описание
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// ParseEvent преобразует строку в Event.
// Возвращает ошибку для недопустимых значений.
func ParseEvent(s string) (Event, error) {
	e := Event(s)
	switch e {
	case EventPublish, EventUnpublish, EventFeature, EventUnfeature:
		return e, nil
	}
	return "", fmt.Errorf("недопустимое событие: %q, допустимые: publish, unpublish, feature, unfeature", s)
}
