package playback

import "fmt"

// State is the playback lifecycle state.
type State int

const (
	// Idle: no recording loaded.
	Idle State = iota
	// Loaded: recording decoded, cursor at frame 0, not playing.
	Loaded
	// Playing: frames are being delivered on schedule.
	Playing
	// Paused: timer suspended, cursor retained.
	Paused
	// Finished: non-looping playback reached the last frame.
	Finished
)

var stateNames = [...]string{"idle", "loaded", "playing", "paused", "finished"}

func (s State) String() string {
	if int(s) >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// MarshalText encodes the state as its lowercase name.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText parses a lowercase state name.
func (s *State) UnmarshalText(text []byte) error {
	for i, name := range stateNames {
		if name == string(text) {
			*s = State(i)
			return nil
		}
	}
	return fmt.Errorf("unknown playback state %q", text)
}
