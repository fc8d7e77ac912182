package model

// FreeSlots is the number of requests that can still be confirmed. It is only
// meaningful for limited events; callers check Unlimited first.
func FreeSlots(limit, confirmed int) int {
	free := limit - confirmed
	if free < 0 {
		return 0
	}
	return free
}

// HasCapacity reports whether one more request may be admitted.
func HasCapacity(e *Event, confirmed int) bool {
	return e.Unlimited() || confirmed < e.ParticipantLimit
}

// Partition splits batch into the first free entries and the remainder,
// preserving caller order. Earlier entries win ties for the remaining slots.
func Partition[T any](batch []T, free int) (admitted, overflow []T) {
	if free < 0 {
		free = 0
	}
	if free >= len(batch) {
		return batch, nil
	}
	return batch[:free], batch[free:]
}

// DedupIDs drops repeated ids, keeping the first occurrence.
func DedupIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
