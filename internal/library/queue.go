package library

import "math/rand"

// episodeWindowSize bounds queue memory and query cost on large libraries.
const episodeWindowSize = 20

// PlayQueue is an ordered sequence of items plus a selected pointer. It is
// rebuilt per play/find call and on shuffle/loop toggles.
type PlayQueue struct {
	Items    []Item
	Selected int
	Shuffled bool
	Looping  bool
}

// Current returns the selected item.
func (q *PlayQueue) Current() Item {
	return q.Items[q.Selected]
}

// Advance moves the selected pointer by delta, clamped to the queue bounds
// unless the queue loops. Returns false when the pointer did not move.
func (q *PlayQueue) Advance(delta int) bool {
	next := q.Selected + delta
	if q.Looping && len(q.Items) > 0 {
		next = ((next % len(q.Items)) + len(q.Items)) % len(q.Items)
	} else {
		if next < 0 {
			next = 0
		}
		if next >= len(q.Items) {
			next = len(q.Items) - 1
		}
	}
	if next == q.Selected {
		return false
	}
	q.Selected = next
	return true
}

// newSingleItemQueue wraps one item.
func newSingleItemQueue(item Item, shuffle, loop bool) *PlayQueue {
	return &PlayQueue{Items: []Item{item}, Shuffled: shuffle, Looping: loop}
}

// newShuffledQueue builds a queue over the given items, optionally
// shuffling them. The selected pointer starts at the top.
func newShuffledQueue(items []Item, shuffle, loop bool) *PlayQueue {
	queued := make([]Item, len(items))
	copy(queued, items)
	if shuffle {
		rand.Shuffle(len(queued), func(i, j int) {
			queued[i], queued[j] = queued[j], queued[i]
		})
	}
	return &PlayQueue{Items: queued, Shuffled: shuffle, Looping: loop}
}

// newEpisodeQueue builds a bounded window of the show's episode list
// centered on the target episode, clamped at the series bounds, with the
// target selected.
func newEpisodeQueue(episodes []Item, target Item, loop bool) *PlayQueue {
	pos := 0
	for i, episode := range episodes {
		if episode.RatingKey == target.RatingKey {
			pos = i
			break
		}
	}
	window, selected := episodeWindow(episodes, pos, episodeWindowSize)
	return &PlayQueue{Items: window, Selected: selected, Looping: loop}
}

// episodeWindow returns at most count episodes centered on pos. Near the
// list bounds the window shifts instead of shrinking, so a long series
// always yields exactly count episodes.
func episodeWindow(episodes []Item, pos, count int) ([]Item, int) {
	if len(episodes) <= count {
		return episodes, pos
	}
	start := pos - count/2
	if start < 0 {
		start = 0
	}
	if start > len(episodes)-count {
		start = len(episodes) - count
	}
	return episodes[start : start+count], pos - start
}
