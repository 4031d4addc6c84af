package geo

// Rhombus 菱形：四边全等的四边形。
// 定理：菱形是平行四边形，因此直接内嵌 Parallelogram。
type Rhombus struct {
	Parallelogram
}

// NewRhombus 创建菱形。a 为边长，angleDeg 为相邻两边夹角（度）。
func NewRhombus(a, angleDeg float64) (*Rhombus, error) {
	p, err := NewParallelogram(a, a, angleDeg)
	if err != nil {
		return nil, err
	}
	return &Rhombus{Parallelogram: *p}, nil
}

// Side 边长（四边全等）
func (r *Rhombus) Side() float64 { return r.SideA() }

// Rectangle 矩形：有一个直角的平行四边形。
type Rectangle struct {
	Parallelogram
}

// NewRectangle 创建矩形。
func NewRectangle(a, b float64) (*Rectangle, error) {
	p, err := NewParallelogram(a, b, 90)
	if err != nil {
		return nil, err
	}
	return &Rectangle{Parallelogram: *p}, nil
}

// Square 正方形：既是菱形又是矩形。
type Square struct {
	Rhombus
}

// NewSquare 创建正方形。
func NewSquare(a float64) (*Square, error) {
	r, err := NewRhombus(a, 90)
	if err != nil {
		return nil, err
	}
	return &Square{Rhombus: *r}, nil
}
