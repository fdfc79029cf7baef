// Package ai wraps OpenCV DNN networks: the produce classifier, the SSD region
// detector and the annotation renderer.
package ai

import (
	"fmt"
	"os"

	"gocv.io/x/gocv"
)

// loadNet reads a network and sets backend/target preferences. configPath may
// be empty for single-file formats such as ONNX.
func loadNet(modelPath, configPath string) (gocv.Net, error) {
	if _, err := os.Stat(modelPath); os.IsNotExist(err) {
		return gocv.Net{}, fmt.Errorf("model file not found: %s", modelPath)
	}

	if configPath != "" {
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			return gocv.Net{}, fmt.Errorf("config file not found: %s", configPath)
		}
	}

	net := gocv.ReadNet(modelPath, configPath)
	if net.Empty() {
		return gocv.Net{}, fmt.Errorf("failed to load network %s", modelPath)
	}

	errBackend := net.SetPreferableBackend(gocv.NetBackendDefault)
	errTarget := net.SetPreferableTarget(gocv.NetTargetCPU)
	if errBackend != nil || errTarget != nil {
		net.Close()
		return gocv.Net{}, fmt.Errorf("failed to set preferable backend or target")
	}

	return net, nil
}
