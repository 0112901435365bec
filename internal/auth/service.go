package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	xlog "NEAR-Swarm/pkg/logger"
)

// Service 负责 HTTP 端点的身份验证。令牌只以 sha256 摘要形式保存在内存中。
type Service struct {
	mode    Mode
	entries []tokenEntry
	audit   *slog.Logger
}

type tokenEntry struct {
	digest  [sha256.Size]byte
	subject *Subject
}

// NewService 构造认证服务。mode 为空时视为 disabled。
func NewService(cfg Config, audit *slog.Logger) (*Service, error) {
	if audit == nil {
		audit = xlog.Discard()
	}
	mode := Mode(strings.ToLower(strings.TrimSpace(string(cfg.Mode))))
	if mode == "" {
		mode = ModeDisabled
	}
	svc := &Service{mode: mode, audit: audit}

	switch mode {
	case ModeDisabled:
		return svc, nil
	case ModeToken:
	default:
		return nil, fmt.Errorf("不支持的认证模式: %s", cfg.Mode)
	}

	seen := make(map[string]struct{}, len(cfg.Tokens))
	for _, tc := range cfg.Tokens {
		token := strings.TrimSpace(tc.Token)
		if token == "" {
			return nil, fmt.Errorf("令牌 %q 不能为空", tc.Name)
		}
		if _, dup := seen[token]; dup {
			return nil, fmt.Errorf("令牌 %q 重复", tc.Name)
		}
		seen[token] = struct{}{}
		subject := &Subject{
			Name:        tc.Name,
			Permissions: append([]string(nil), tc.Permissions...),
			Disabled:    tc.Disabled,
		}
		subject.normalise()
		svc.entries = append(svc.entries, tokenEntry{digest: sha256.Sum256([]byte(token)), subject: subject})
	}
	if len(svc.entries) == 0 {
		return nil, errors.New("token 模式至少需要配置一个令牌")
	}
	return svc, nil
}

// Enabled 报告是否启用了认证。
func (s *Service) Enabled() bool {
	return s != nil && s.mode != ModeDisabled
}

// AuthenticateRequest 解析 Authorization 头并返回对应的主体。
func (s *Service) AuthenticateRequest(header string) (*Subject, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return nil, ErrMissingToken
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return nil, ErrMissingToken
	}

	digest := sha256.Sum256([]byte(strings.TrimSpace(token)))
	var match *Subject
	for _, entry := range s.entries {
		if subtle.ConstantTimeCompare(digest[:], entry.digest[:]) == 1 {
			match = entry.subject
		}
	}
	if match == nil {
		return nil, ErrInvalidToken
	}
	if match.Disabled {
		return nil, ErrSubjectRevoked
	}
	return match, nil
}
