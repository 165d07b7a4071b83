package service

import (
	"slices"

	"boatnav/internal/domain/sensor"
	"boatnav/internal/domain/trip"
	"boatnav/internal/ports"
)

// Alert ids
const (
	AlertHighTemperature       = "high_temperature"
	AlertLowBattery            = "low_battery"
	AlertAdverseWeather        = "adverse_weather"
	AlertSensorDataUnavailable = "sensor_data_unavailable"
)

// Thresholds
const (
	MaxTemperatureC   = 45.0
	MinBatteryPercent = 20.0
	MaxWindSpeedKPH   = 40.0
)

type alertRule struct {
	id      string
	message string
	level   trip.Level
	active  func(sensor.Snapshot) bool
}

var alertRules = []alertRule{
	{
		id:      AlertHighTemperature,
		message: "Engine temperature is high.",
		level:   trip.LevelError,
		active:  func(s sensor.Snapshot) bool { return s.Temperature > MaxTemperatureC },
	},
	{
		id:      AlertLowBattery,
		message: "Battery is low.",
		level:   trip.LevelWarning,
		active:  func(s sensor.Snapshot) bool { return s.BatteryPercentage < MinBatteryPercent },
	},
	{
		id:      AlertAdverseWeather,
		message: "Strong wind: adverse weather conditions.",
		level:   trip.LevelWarning,
		active:  func(s sensor.Snapshot) bool { return s.WindSpeed > MaxWindSpeedKPH },
	},
}

// AlertBoard holds deduplicated alerts in raise order. Not safe for concurrent use.
type AlertBoard struct {
	alerts    []ports.Alert
	dismissed map[string]bool
}

func NewAlertBoard() *AlertBoard {
	return &AlertBoard{dismissed: map[string]bool{}}
}

// Add inserts alert unless one with the same id exists.
func (board *AlertBoard) Add(alert ports.Alert) bool {
	if board.has(alert.ID) {
		return false
	}
	board.alerts = append(board.alerts, alert)
	return true
}

// Remove deletes the alert with id.
func (board *AlertBoard) Remove(id string) bool {
	idx := slices.IndexFunc(board.alerts, func(a ports.Alert) bool { return a.ID == id })
	if idx < 0 {
		return false
	}
	board.alerts = slices.Delete(board.alerts, idx, idx+1)
	return true
}

// Dismiss removes the alert and keeps it hidden until its condition clears.
func (board *AlertBoard) Dismiss(id string) bool {
	if !board.Remove(id) {
		return false
	}
	board.dismissed[id] = true
	return true
}

// List returns a copy of the active alerts.
func (board *AlertBoard) List() []ports.Alert {
	return append([]ports.Alert{}, board.alerts...)
}

// Evaluate applies the rules to s and returns newly raised alerts.
// Stale snapshots only toggle the data-unavailable alert.
func (board *AlertBoard) Evaluate(s sensor.Snapshot) []ports.Alert {
	var raised []ports.Alert

	if s.Stale {
		unavailable := ports.Alert{
			ID:      AlertSensorDataUnavailable,
			Message: "Sensor data unavailable.",
			Level:   trip.LevelError,
		}
		if board.raise(unavailable) {
			raised = append(raised, unavailable)
		}
		return raised
	}
	board.clear(AlertSensorDataUnavailable)

	for _, rule := range alertRules {
		if !rule.active(s) {
			board.clear(rule.id)
			continue
		}
		alert := ports.Alert{ID: rule.id, Message: rule.message, Level: rule.level}
		if board.raise(alert) {
			raised = append(raised, alert)
		}
	}
	return raised
}

func (board *AlertBoard) raise(alert ports.Alert) bool {
	if board.dismissed[alert.ID] {
		return false
	}
	return board.Add(alert)
}

func (board *AlertBoard) clear(id string) {
	board.Remove(id)
	delete(board.dismissed, id)
}

func (board *AlertBoard) has(id string) bool {
	return slices.ContainsFunc(board.alerts, func(a ports.Alert) bool { return a.ID == id })
}
