package wa

// State is the remote connection state reported by the session.
type State string

const (
	StateConflict          State = "CONFLICT"
	StateConnected         State = "CONNECTED"
	StateDeprecatedVersion State = "DEPRECATED_VERSION"
	StateOpening           State = "OPENING"
	StatePairing           State = "PAIRING"
	StateProxyBlock        State = "PROXYBLOCK"
	StateSMBTOSBlock       State = "SMB_TOS_BLOCK"
	StateTimeout           State = "TIMEOUT"
	StateTOSBlock          State = "TOS_BLOCK"
	StateUnlaunched        State = "UNLAUNCHED"
	StateUnpaired          State = "UNPAIRED"
	StateUnpairedIdle      State = "UNPAIRED_IDLE"
)
