package types

// StatusResponse is the read-only snapshot served to operators. It never
// carries the secret code.
type StatusResponse struct {
	OK         bool            `json:"ok"`
	BootID     string          `json:"boot_id"`
	Tick       uint64          `json:"tick"`
	UptimeMs   uint32          `json:"uptime_ms"`
	Password   PasswordStatus  `json:"password"`
	Doors      []DoorStatus    `json:"doors"`
	ChildLock  ChildLockStatus `json:"child_lock"`
	Indicator  IndicatorStatus `json:"indicator"`
	Light      LightStatus     `json:"light"`
	QueueDrops uint64          `json:"queue_drops"`
	ServerTime string          `json:"server_time"`
}

type PasswordStatus struct {
	State   string `json:"state"`
	Entered int    `json:"entered"`
}

type DoorStatus struct {
	Door          string `json:"door"`
	Phase         string `json:"phase"`
	Opened        bool   `json:"opened"`
	Alarm         bool   `json:"alarm"`
	MagnetEngaged bool   `json:"magnet_engaged"`
}

type ChildLockStatus struct {
	Engaged            bool `json:"engaged"`
	DeviceRunning      bool `json:"device_running"`
	PowerButtonEnabled bool `json:"power_button_enabled"`
	ScreenEnabled      bool `json:"screen_enabled"`
}

type IndicatorStatus struct {
	LED       string `json:"led"`
	LastSound string `json:"last_sound"`
	Alarm     bool   `json:"alarm"`
}

type LightStatus struct {
	On    bool  `json:"on"`
	Level uint8 `json:"level"`
}
