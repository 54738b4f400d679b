package session

import (
	"context"
	"regexp"
	"strings"
	"time"
)

// readTimed 限时读取：按 0.1s 量子轮询通道，收到过数据之后
// 连续一次空读即视为输出静默；静默确认前休眠 2s（均按 delayFactor 缩放）。
// maxLoops<=0 时取 timeout/0.1s。
func (s *Session) readTimed(ctx context.Context, delayFactor float64, maxLoops int) (string, error) {
	return s.readTimedMarked(ctx, delayFactor, maxLoops, "")
}

// readTimedOrError 同 readTimed，但输出中出现断链标记时立即失败。
// 部分平台在认证/会话异常时先打印 "Received disconnect" 再持续刷屏，
// 不在读取循环内检查会白白耗完整个超时预算。
func (s *Session) readTimedOrError(ctx context.Context, delayFactor float64, maxLoops int) (string, error) {
	return s.readTimedMarked(ctx, delayFactor, maxLoops, s.plat.DisconnectPattern)
}

func (s *Session) readTimedMarked(ctx context.Context, delayFactor float64, maxLoops int, marker string) (string, error) {
	if delayFactor <= 0 {
		delayFactor = s.delayFactor
	}
	if maxLoops <= 0 {
		maxLoops = int(s.timeout / loopDelay)
		if maxLoops < 1 {
			maxLoops = 1
		}
	}
	var out strings.Builder
	quantum := time.Duration(float64(loopDelay) * delayFactor)
	for i := 0; i < maxLoops; i++ {
		if err := s.sleep(ctx, quantum); err != nil {
			return out.String(), err
		}
		data, err := s.readChannel()
		out.WriteString(data)
		if err != nil {
			return out.String(), err
		}
		if err := s.checkMarker(out.String(), marker); err != nil {
			return out.String(), err
		}
		if data != "" {
			continue
		}
		if out.Len() == 0 {
			continue
		}
		// 首次空读：确认休眠后再读一次，防止慢速设备被误判为已静默
		if err := s.sleep(ctx, time.Duration(float64(confirmDelay)*delayFactor)); err != nil {
			return out.String(), err
		}
		data, err = s.readChannel()
		out.WriteString(data)
		if err != nil {
			return out.String(), err
		}
		if err := s.checkMarker(out.String(), marker); err != nil {
			return out.String(), err
		}
		if data == "" {
			return out.String(), nil
		}
	}
	// 预算耗尽说明设备仍在输出，流位置不再可信
	s.synced = false
	return out.String(), &TimeoutError{Op: "read_timed", LastOutput: out.String()}
}

// checkMarker 断链标记命中即失败；跨读取边界的标记在累计输出上命中
func (s *Session) checkMarker(out, marker string) error {
	if marker == "" || !strings.Contains(out, marker) {
		return nil
	}
	s.alive = false
	s.synced = false
	return &ChannelClosedError{Detail: marker, LastOutput: out}
}

// readUntilPattern 读取直到输出匹配 re；超过循环上限返回 TimeoutError。
// 匹配在累计输出上进行，跨读取边界的模式也能命中。
func (s *Session) readUntilPattern(ctx context.Context, re *regexp.Regexp, op string) (string, error) {
	maxLoops := int(s.timeout / loopDelay)
	if maxLoops < 1 {
		maxLoops = 1
	}
	var out strings.Builder
	quantum := time.Duration(float64(loopDelay) * s.delayFactor)
	for i := 0; i < maxLoops; i++ {
		data, err := s.readChannel()
		out.WriteString(data)
		if err != nil {
			return out.String(), err
		}
		if re.MatchString(normalizeLinefeeds(out.String())) {
			return out.String(), nil
		}
		if err := s.sleep(ctx, quantum); err != nil {
			return out.String(), err
		}
	}
	// 期望的模式始终没出现，之后的输出可能错位到下一条命令
	s.synced = false
	return out.String(), &TimeoutError{Op: op, Pattern: re.String(), LastOutput: out.String()}
}
