package modelstore

import "time"

// ModelRecord 一个命名的正态分布模型定义
type ModelRecord struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Mean      float64   `json:"mean"`
	Stdev     float64   `json:"stdev"`
	Terms     int       `json:"terms"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
