package main

import "time"

// Preview window and simulated occupant constants. Everything that shapes
// what reaches the projectors lives in internal/config.
const (
	tileCols, tileRows = 2, 2
	windowScale        = 1
	moveSpeed          = 1.2  // metres per second
	legSpread          = 0.3  // metres between the occupant's feet
	bodyDiameter       = 0.35 // metres
	strideLength       = 0.6  // metres per full gait cycle
	occupantID         = 9999
	occupantChannel    = 99
	pgoRecordDuration  = 15 * time.Second
)
