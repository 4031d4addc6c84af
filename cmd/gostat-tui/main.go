package main

import (
	"context"
	"flag"
	"fmt"
	"math"
	"os"
	"strings"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	gorillaWS "github.com/gorilla/websocket"

	"github.com/statbot/gostat/pkg/client"
	"github.com/statbot/gostat/pkg/gaussian"
	"github.com/statbot/gostat/pkg/sigchan"
)

var (
	// 样式定义
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			Background(lipgloss.Color("57")).
			Padding(0, 1)
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	barStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	curveStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("213"))
	statStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("250"))
	errStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

// runningStats 流式统计（weight/min/max/sum/sum²）
type runningStats struct {
	n    float64
	min  float64
	max  float64
	sum  float64
	sum2 float64
}

func (s *runningStats) add(v float64) {
	if s.n == 0 || v < s.min {
		s.min = v
	}
	if s.n == 0 || v > s.max {
		s.max = v
	}
	s.n++
	s.sum += v
	s.sum2 += v * v
}

func (s *runningStats) mean() float64 {
	if s.n == 0 {
		return 0
	}
	return s.sum / s.n
}

func (s *runningStats) stddev() float64 {
	if s.n < 2 {
		return 0
	}
	v := s.sum2/s.n - s.mean()*s.mean()
	if v < 0 {
		v = 0
	}
	return math.Sqrt(v)
}

// histState 直方图共享状态（ws 读 goroutine 写，TUI 读）
type histState struct {
	mu     sync.Mutex
	counts []int
	stats  runningStats
	lastX  float64
	closed bool
	err    error
}

type appModel struct {
	modelInfo *client.Model
	dist      *gaussian.Model
	hist      *histState
	sig       *sigchan.Chan
	bins      int
	lo, hi    float64 // 直方图范围 [mean-4σ, mean+4σ]
	width     int
}

type redrawMsg struct{}

// waitForSignal 等待 ws 读 goroutine 的重绘信号
func waitForSignal(sig *sigchan.Chan) tea.Cmd {
	return func() tea.Msg {
		<-sig.C()
		return redrawMsg{}
	}
}

func (m appModel) Init() tea.Cmd {
	return waitForSignal(m.sig)
}

func (m appModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil
	case redrawMsg:
		return m, waitForSignal(m.sig)
	}
	return m, nil
}

func (m appModel) View() string {
	var b strings.Builder

	title := fmt.Sprintf(" gostat · %s · N(%v, %v²) ", m.modelInfo.Name, m.modelInfo.Mean, m.modelInfo.Stdev)
	b.WriteString(headerStyle.Render(title))
	b.WriteString("\n\n")

	m.hist.mu.Lock()
	counts := append([]int(nil), m.hist.counts...)
	stats := m.hist.stats
	lastX := m.hist.lastX
	closed := m.hist.closed
	streamErr := m.hist.err
	m.hist.mu.Unlock()

	maxCount := 0
	for _, c := range counts {
		if c > maxCount {
			maxCount = c
		}
	}

	// 每个 bin 一行：区间中心 | 理论密度刻度 | 抽样计数条
	barWidth := 40
	binWidth := (m.hi - m.lo) / float64(m.bins)
	peak := m.dist.Density(m.modelInfo.Mean)
	for i := 0; i < m.bins; i++ {
		center := m.lo + (float64(i)+0.5)*binWidth
		expected := m.dist.Density(center)

		curveLen := 0
		if peak > 0 {
			curveLen = int(expected / peak * float64(barWidth))
		}
		barLen := 0
		if maxCount > 0 {
			barLen = counts[i] * barWidth / maxCount
		}

		b.WriteString(labelStyle.Render(fmt.Sprintf("%8.2f ", center)))
		b.WriteString(curveStyle.Render(strings.Repeat("·", curveLen)))
		b.WriteString("\n")
		b.WriteString(labelStyle.Render(strings.Repeat(" ", 9)))
		b.WriteString(barStyle.Render(strings.Repeat("█", barLen)))
		if counts[i] > 0 {
			b.WriteString(labelStyle.Render(fmt.Sprintf(" %d", counts[i])))
		}
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(statStyle.Render(fmt.Sprintf(
		"samples=%d  last=%.3f  sample mean=%.3f (model %.3f)  sample stdev=%.3f (model %.3f)",
		int(stats.n), lastX, stats.mean(), m.modelInfo.Mean, stats.stddev(), m.modelInfo.Stdev)))
	b.WriteString("\n")
	if streamErr != nil {
		b.WriteString(errStyle.Render(fmt.Sprintf("stream error: %v", streamErr)))
		b.WriteString("\n")
	} else if closed {
		b.WriteString(errStyle.Render("stream closed"))
		b.WriteString("\n")
	}
	b.WriteString(labelStyle.Render("q 退出"))
	b.WriteString("\n")
	return b.String()
}

// readStream 消费抽样流，更新直方图状态并发出重绘信号
func readStream(conn *gorillaWS.Conn, hist *histState, sig *sigchan.Chan, lo, hi float64, bins int) {
	binWidth := (hi - lo) / float64(bins)
	for {
		var sample struct {
			Seq int64   `json:"seq"`
			X   float64 `json:"x"`
		}
		if err := conn.ReadJSON(&sample); err != nil {
			hist.mu.Lock()
			hist.closed = true
			hist.err = err
			hist.mu.Unlock()
			sig.Emit()
			return
		}

		hist.mu.Lock()
		hist.stats.add(sample.X)
		hist.lastX = sample.X
		if sample.X >= lo && sample.X < hi {
			idx := int((sample.X - lo) / binWidth)
			if idx >= 0 && idx < bins {
				hist.counts[idx]++
			}
		}
		hist.mu.Unlock()
		sig.Emit()
	}
}

func main() {
	var (
		serverURL  = flag.String("server", envOr("GOSTAT_SERVER", "http://127.0.0.1:8080"), "gostat server base URL")
		modelID    = flag.String("model", "", "model id to watch (required)")
		intervalMS = flag.Int("interval-ms", 100, "sample stream interval")
		bins       = flag.Int("bins", 17, "histogram bins")
	)
	flag.Parse()

	if *modelID == "" {
		fmt.Fprintln(os.Stderr, "-model is required")
		os.Exit(1)
	}

	c := client.New(*serverURL)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	info, err := c.GetModel(ctx, *modelID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "get model failed: %v\n", err)
		os.Exit(1)
	}
	dist, err := gaussian.New(info.Mean, info.Stdev)
	if err != nil {
		fmt.Fprintf(os.Stderr, "bad model parameters: %v\n", err)
		os.Exit(1)
	}

	conn, resp, err := gorillaWS.DefaultDialer.Dial(c.StreamURL(*modelID, *intervalMS), nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "connect stream failed: %v\n", err)
		os.Exit(1)
	}
	if resp != nil {
		resp.Body.Close()
	}
	defer conn.Close()

	lo := info.Mean - 4*info.Stdev
	hi := info.Mean + 4*info.Stdev
	hist := &histState{counts: make([]int, *bins)}
	sig := sigchan.New(1)

	go readStream(conn, hist, sig, lo, hi, *bins)

	app := appModel{
		modelInfo: info,
		dist:      dist,
		hist:      hist,
		sig:       sig,
		bins:      *bins,
		lo:        lo,
		hi:        hi,
	}
	if _, err := tea.NewProgram(app, tea.WithAltScreen()).Run(); err != nil {
		fmt.Fprintf(os.Stderr, "tui error: %v\n", err)
		os.Exit(1)
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
