package domains

import "context"

// Emulation wraps the CDP Emulation domain. Grounded on tomyan-hubcap's
// internal/chrome/emulate.go: SetEmulatedMedia, SetGeolocation,
// SetUserAgent and the viewport/device-metrics override behind Emulate().
type Emulation struct {
	sessionDomain
}

// DeviceMetrics is the subset of Emulation.setDeviceMetricsOverride this
// library exposes through taiko.Emulate.
type DeviceMetrics struct {
	Width             int
	Height            int
	DeviceScaleFactor float64
	Mobile            bool
}

// SetDeviceMetricsOverride changes the emulated viewport.
func (e *Emulation) SetDeviceMetricsOverride(ctx context.Context, m DeviceMetrics) error {
	_, err := e.call(ctx, "Emulation.setDeviceMetricsOverride", struct {
		Width             int     `json:"width"`
		Height            int     `json:"height"`
		DeviceScaleFactor float64 `json:"deviceScaleFactor"`
		Mobile            bool    `json:"mobile"`
	}{m.Width, m.Height, m.DeviceScaleFactor, m.Mobile})
	return err
}

// ClearDeviceMetricsOverride removes a prior viewport override.
func (e *Emulation) ClearDeviceMetricsOverride(ctx context.Context) error {
	_, err := e.call(ctx, "Emulation.clearDeviceMetricsOverride", nil)
	return err
}

// SetUserAgentOverride changes the User-Agent header and navigator
// properties reported by the page.
func (e *Emulation) SetUserAgentOverride(ctx context.Context, userAgent string) error {
	_, err := e.call(ctx, "Emulation.setUserAgentOverride", struct {
		UserAgent string `json:"userAgent"`
	}{userAgent})
	return err
}

// SetGeolocationOverride pins the page's Geolocation API result.
func (e *Emulation) SetGeolocationOverride(ctx context.Context, latitude, longitude, accuracy float64) error {
	_, err := e.call(ctx, "Emulation.setGeolocationOverride", struct {
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
		Accuracy  float64 `json:"accuracy"`
	}{latitude, longitude, accuracy})
	return err
}

// SetEmulatedMedia changes CSS media-query emulation (screen/print, or a
// prefers-color-scheme feature).
func (e *Emulation) SetEmulatedMedia(ctx context.Context, media string) error {
	_, err := e.call(ctx, "Emulation.setEmulatedMedia", struct {
		Media string `json:"media"`
	}{media})
	return err
}
