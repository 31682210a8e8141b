package model

import "time"

type Session struct {
	CreatedAt time.Time
}
