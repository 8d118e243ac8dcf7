package camera

// evaluateTracking reconciles the single shared HID subscription with
// current demand. It is the only place the subscription is started; callers
// hold lifeMu. The sink registrations happen before the already-tracking
// short-circuit so a producer enabled after the subscription is running
// still receives data.
func (s *Session) evaluateTracking() bool {
	motion := s.motions.IsMotionDatasEnabled()
	imgInfo := s.streams.IsImageInfoEnabled()

	// Not tracking when data & info are both disabled.
	if !motion && !imgInfo {
		return false
	}

	if motion {
		s.channel.SetImuDataCallback(s.motions.OnImuDataCallback)
	}
	if imgInfo {
		s.channel.SetImgInfoCallback(s.streams.OnImageInfoCallback)
	}

	if s.channel.IsHidTracking() {
		return true
	}
	if !s.channel.IsHidAvailable() {
		s.logger.Printf("camera: data channel unavailable, could not track device data")
		return false
	}
	if err := s.channel.StartHidTracking(); err != nil {
		s.logger.Printf("camera: start hid tracking: %v", err)
		return false
	}
	return true
}

// stopTracking ignores demand flags so no hardware subscription survives a
// closed session.
func (s *Session) stopTracking() {
	if s.channel.IsHidTracking() {
		s.channel.StopHidTracking()
	}
}
