package models

import (
	"time"

	"github.com/smazurov/feedbackd/internal/feedback"
)

// HealthData is the health check body.
type HealthData struct {
	Status  string `json:"status" example:"ok" doc:"Service status"`
	Message string `json:"message" example:"API is healthy" doc:"Status message"`
}

type HealthResponse struct {
	Body HealthData
}

// VersionData is the build metadata body.
type VersionData struct {
	Version   string `json:"version" example:"1.0.0" doc:"Application version"`
	GitCommit string `json:"git_commit" example:"abc123" doc:"Git commit hash"`
	BuildDate string `json:"build_date" example:"2026-01-01T00:00:00Z" doc:"Build timestamp"`
	BuildID   string `json:"build_id" example:"42" doc:"Build identifier"`
	GoVersion string `json:"go_version" example:"go1.24.11" doc:"Go version"`
	Compiler  string `json:"compiler" example:"gc" doc:"Go compiler"`
	Platform  string `json:"platform" example:"linux/arm64" doc:"Target platform"`
}

type VersionResponse struct {
	Body VersionData
}

// LEDInfo describes one probed LED.
type LEDInfo struct {
	Name          string   `json:"name" example:"rgb:status" doc:"Device name"`
	Path          string   `json:"path" example:"/sys/class/leds/rgb:status" doc:"Sysfs directory"`
	Kind          string   `json:"kind" example:"multicolor" doc:"Driver variant"`
	Priority      int      `json:"priority" example:"50" doc:"Selection priority"`
	MaxBrightness uint32   `json:"max_brightness" example:"255" doc:"Hardware brightness limit"`
	Colors        []string `json:"colors" example:"[\"red\",\"green\",\"blue\",\"rgb\"]" doc:"Supported colors"`
}

type LEDListData struct {
	LEDs  []LEDInfo `json:"leds" doc:"LEDs in priority order"`
	Count int       `json:"count" example:"2" doc:"Number of LEDs"`
}

type LEDListResponse struct {
	Body LEDListData
}

type EventListData struct {
	Events []feedback.EventInfo `json:"events" doc:"Running events"`
	Count  int                  `json:"count" example:"1" doc:"Number of running events"`
}

type EventListResponse struct {
	Body EventListData
}

type EventResponse struct {
	Body feedback.EventInfo
}

type EventPath struct {
	ID uint32 `path:"id" example:"7" doc:"Event identifier"`
}

// ProfileData carries a profile name.
type ProfileData struct {
	Profile string `json:"profile" enum:"full,quiet,silent" example:"quiet" doc:"Global feedback profile"`
}

type ProfileResponse struct {
	Body ProfileData
}

type ProfileRequest struct {
	Body ProfileData
}

// TriggerRequestData is the trigger body.
type TriggerRequestData struct {
	AppID     string `json:"app_id" minLength:"1" example:"org.gnome.Calls" doc:"Application id"`
	Event     string `json:"event" minLength:"1" example:"phone-incoming-call" doc:"Event name"`
	Profile   string `json:"profile,omitempty" example:"quiet" doc:"Highest profile to use for this event"`
	Important bool   `json:"important,omitempty" doc:"Bypass the global profile if the app is allowed to"`
	SoundFile string `json:"sound_file,omitempty" example:"/usr/share/sounds/ring.oga" doc:"Custom sound file"`
	Timeout   int32  `json:"timeout" required:"false" default:"-1" minimum:"-1" example:"-1" doc:"-1 plays once, 0 loops until ended, >0 loops for that many seconds"`
}

type TriggerRequest struct {
	Body TriggerRequestData
}

type TriggerData struct {
	ID   uint32    `json:"id" example:"7" doc:"Event identifier, used to end it"`
	Time time.Time `json:"time" doc:"Trigger time"`
}

type TriggerResponse struct {
	Body TriggerData
}

// ServiceStatusData is the systemd unit state.
type ServiceStatusData struct {
	Service string `json:"service" example:"feedbackd.service" doc:"Unit name"`
	Status  string `json:"status" example:"active" doc:"ActiveState (active, inactive, failed, ...)"`
}

type ServiceStatusResponse struct {
	Body ServiceStatusData
}
