package tle

import "time"

// Entry is a single satellite's two-line element set.
type Entry struct {
	NORADID int       `json:"norad_id"`
	Name    string    `json:"name"`
	Epoch   time.Time `json:"epoch"`
	Line1   string    `json:"line1"`
	Line2   string    `json:"line2"`
}

// EpochRange is the earliest and latest element epoch in a dataset.
type EpochRange struct {
	Min time.Time `json:"min"`
	Max time.Time `json:"max"`
}

// Dataset is one loaded TLE catalog.
type Dataset struct {
	Source     string     `json:"source"`
	LoadedAt   time.Time  `json:"loaded_at"`
	EpochRange EpochRange `json:"epoch_range"`
	Satellites []Entry    `json:"-"`
}
