package session

import (
	"context"
	"strings"
	"time"
)

// FindPrompt 重新定位设备提示符：发送空行、读取回显、取最后一行。
// 候选先过负面标记检查，再验证终止符；通过后会话重新进入同步态。
func (s *Session) FindPrompt(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.findPrompt(ctx)
}

func (s *Session) findPrompt(ctx context.Context) (string, error) {
	outerLoops := s.plat.FindPromptLoops
	if outerLoops <= 0 {
		outerLoops = 20
	}
	var lastSeen string
	for attempt := 0; attempt < outerLoops; attempt++ {
		prompt, err := s.promptCandidate(ctx)
		if err != nil {
			return "", err
		}
		lastSeen = prompt
		if prompt != "" && s.validPrompt(prompt) {
			// 收尾：等回显落盘并清空残留，保证流位置干净
			if err := s.sleep(ctx, s.scale(loopDelay)); err != nil {
				return "", err
			}
			if err := s.clearBuffer(); err != nil {
				return "", err
			}
			s.synced = true
			s.emit(EventPromptFound, map[string]interface{}{"prompt": prompt})
			return prompt, nil
		}
		if err := s.sleep(ctx, s.scale(time.Second)); err != nil {
			return "", err
		}
	}
	return "", &PromptNotFoundError{LastOutput: lastSeen}
}

// promptCandidate 单轮候选采集：写回车后读取，空读时指数退避重试，
// 多行输出取最后一行作为候选。
func (s *Session) promptCandidate(ctx context.Context) (string, error) {
	if err := s.clearBuffer(); err != nil {
		return "", err
	}
	if err := s.writeReturn(); err != nil {
		return "", err
	}
	sleepTime := s.scale(loopDelay)
	if err := s.sleep(ctx, sleepTime); err != nil {
		return "", err
	}
	data, err := s.readChannel()
	if err != nil {
		return "", err
	}
	prompt := strings.TrimSpace(data)
	for count := 0; count <= 12 && prompt == ""; count++ {
		data, err = s.readChannel()
		if err != nil {
			return "", err
		}
		prompt = strings.TrimSpace(data)
		if prompt == "" {
			if err := s.writeReturn(); err != nil {
				return "", err
			}
			if err := s.sleep(ctx, sleepTime); err != nil {
				return "", err
			}
			if sleepTime <= 3*time.Second {
				sleepTime *= 2
			} else {
				sleepTime += time.Second
			}
		}
	}
	lines := strings.Split(normalizeLinefeeds(prompt), "\n")
	return strings.TrimSpace(lines[len(lines)-1]), nil
}

// validPrompt 候选校验：负面标记一票否决，之后必须以任一终止符结尾
func (s *Session) validPrompt(prompt string) bool {
	for _, marker := range s.plat.Prompt.NegativeMarkers {
		if strings.Contains(prompt, marker) {
			return false
		}
	}
	for _, t := range s.plat.Prompt.AltTerminators {
		if strings.HasSuffix(prompt, t) {
			return true
		}
	}
	for _, t := range s.plat.Prompt.Terminators {
		if strings.HasSuffix(prompt, t) {
			return true
		}
	}
	return false
}

// SetBasePrompt 定位提示符并剥离终止符得到基准提示符（主机名部分）
func (s *Session) SetBasePrompt(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.setBasePrompt(ctx); err != nil {
		return "", err
	}
	return s.basePrompt, nil
}

func (s *Session) setBasePrompt(ctx context.Context) error {
	prompt, err := s.findPrompt(ctx)
	if err != nil {
		return err
	}
	// 备用终止符更长，先剥离；都不匹配时退化为去掉末尾单字符
	base := prompt
	stripped := false
	for _, t := range s.plat.Prompt.AltTerminators {
		if strings.HasSuffix(base, t) {
			base = strings.TrimSuffix(base, t)
			stripped = true
			break
		}
	}
	if !stripped {
		for _, t := range s.plat.Prompt.Terminators {
			if strings.HasSuffix(base, t) {
				base = strings.TrimSuffix(base, t)
				stripped = true
				break
			}
		}
	}
	if !stripped && len(base) > 1 {
		base = base[:len(base)-1]
	}
	s.basePrompt = base
	return nil
}
