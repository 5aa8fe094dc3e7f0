package dispatcher

// Action is the typed command vocabulary accepted on the ingress.
type Action string

const (
	ActionPlay         Action = "play"
	ActionResume       Action = "resume"
	ActionPause        Action = "pause"
	ActionStop         Action = "stop"
	ActionOpen         Action = "open"
	ActionSetVolume    Action = "set-volume"
	ActionMute         Action = "mute"
	ActionUnmute       Action = "unmute"
	ActionShuffleOn    Action = "shuffle-on"
	ActionShuffleOff   Action = "shuffle-off"
	ActionLoopOn       Action = "loop-on"
	ActionLoopOff      Action = "loop-off"
	ActionPlayNext     Action = "play-next"
	ActionPlayPrevious Action = "play-previous"
	ActionRewind       Action = "rewind"
	ActionFastForward  Action = "fast-forward"
	ActionSeek         Action = "seek"
	ActionRestart      Action = "restart"
	ActionPlayMedia    Action = "play-media"
	ActionPlayPhotos   Action = "play-photos"
	ActionChangeAudio  Action = "change-audio"
	ActionSubtitleOn   Action = "subtitle-on"
	ActionSubtitleOff  Action = "subtitle-off"
	ActionTranscode    Action = "transcode"
)

// Envelope is one command as received from the voice front end.
type Envelope struct {
	Room    string         `json:"room"`
	Command Action         `json:"command"`
	Data    map[string]any `json:"data,omitempty"`
}
