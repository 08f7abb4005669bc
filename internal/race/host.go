package race

// ElectHost picks the lowest identity among active participants.
// ok is false when nobody is connected.
func ElectHost(active []ParticipantID) (host ParticipantID, ok bool) {
	for i, id := range active {
		if i == 0 || id < host {
			host = id
		}
	}
	return host, len(active) > 0
}

// hostChange reports whether a newHost notification is due: the previous
// host left and somebody else now holds the role.
func hostChange(prev *ParticipantID, prevStillActive bool, next *ParticipantID) bool {
	if prev == nil || prevStillActive || next == nil {
		return false
	}
	return *prev != *next
}
