package model

import "errors"

var (
	ErrNoImageLoaded       = errors.New("no uploaded image found")
	ErrInvalidImage        = errors.New("invalid image")
	ErrInferenceFailure    = errors.New("inference failed")
	ErrNoDetectionsYet     = errors.New("no detections available, run /predict_many/ first")
	ErrPatchNotFound       = errors.New("patch not found")
	ErrInvalidParameter    = errors.New("invalid parameter")
	ErrDetectorUnavailable = errors.New("detector mode is not available")
)
