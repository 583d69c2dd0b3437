package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/oksasatya/account-portal/internal/domain/entity"
	repo "github.com/oksasatya/account-portal/internal/domain/repository"
	"github.com/oksasatya/account-portal/pkg/helpers"
	"github.com/oksasatya/account-portal/pkg/mailer"
	tpl "github.com/oksasatya/account-portal/pkg/mailer/templates"
)

const (
	tempPasswordLength = 10
	recoveryCooldown   = time.Minute
)

// RequestMeta describes the caller, for the e-mails sent on its behalf.
type RequestMeta struct {
	IP        string
	UserAgent string
}

// Register creates an account. The e-mail is checked before the login, so a
// request clashing on both reports ErrEmailDuplicate.
func (s *Service) Register(ctx context.Context, email, login, password string, meta RequestMeta) (*entity.User, error) {
	email = normalizeEmail(email)
	if _, err := s.Repo.GetByEmail(ctx, email); err == nil {
		return nil, ErrEmailDuplicate
	} else if !errors.Is(err, repo.ErrNotFound) {
		return nil, err
	}
	if _, err := s.Repo.GetByUsername(ctx, login); err == nil {
		return nil, ErrUserDuplicate
	} else if !errors.Is(err, repo.ErrNotFound) {
		return nil, err
	}

	hash, err := helpers.HashPassword(password)
	if err != nil {
		return nil, err
	}
	u := &entity.User{Email: email, Username: login, Password: hash}
	if err := s.Repo.Create(ctx, u); err != nil {
		// lost a race with a concurrent registration
		switch {
		case errors.Is(err, repo.ErrEmailTaken):
			return nil, ErrEmailDuplicate
		case errors.Is(err, repo.ErrUsernameTaken):
			return nil, ErrUserDuplicate
		}
		return nil, err
	}
	registrations.Add(1)

	_ = s.indexUser(ctx, u)
	s.enqueue(ctx, mailer.EmailJob{
		To:       u.Email,
		Template: tpl.Welcome,
		Data:     tpl.NewWelcomeData(s.Cfg, u.RealName, u.Email, u.Username, mailOptions(meta)...),
	})
	return u, nil
}

// Recover replaces the password of the account with a generated one and
// mails it. It reports false when no account uses the address. Within the
// cooldown a repeated request reports true without issuing a new password.
// The password changes only after the mail job is queued; without a working
// queue the account is left untouched and ErrMailUnavailable is returned.
func (s *Service) Recover(ctx context.Context, email string, meta RequestMeta) (bool, error) {
	u, err := s.Repo.GetByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, repo.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if !s.mailEnabled() {
		return false, ErrMailUnavailable
	}

	cooldownKey := helpers.RecoveryCooldownKey(u.Email)
	if s.Redis != nil {
		fresh, rErr := s.Redis.SetNX(ctx, cooldownKey, "1", recoveryCooldown).Result()
		if rErr != nil {
			helpers.LogWarn(s.Logger, "recovery cooldown check failed", rErr, logrus.Fields{"user_id": u.ID})
		} else if !fresh {
			return true, nil
		}
	}
	// a failed attempt must not hold the cooldown
	release := func() {
		if s.Redis != nil {
			_ = s.Redis.Del(ctx, cooldownKey).Err()
		}
	}

	temp, err := helpers.TempPassword(tempPasswordLength)
	if err != nil {
		release()
		return false, err
	}
	hash, err := helpers.HashPassword(temp)
	if err != nil {
		release()
		return false, err
	}
	job := mailer.EmailJob{
		To:       u.Email,
		Template: tpl.AccountRecovery,
		Data:     tpl.NewRecoveryData(s.Cfg, u.RealName, u.Email, temp, mailOptions(meta)...),
	}
	if err := s.Mail.PublishJSON(ctx, job); err != nil {
		release()
		return false, fmt.Errorf("%w: %v", ErrMailUnavailable, err)
	}
	mailsQueued.Add(1)

	u.Password = hash
	if err := s.Repo.Update(ctx, u); err != nil {
		// the queued mail carries a password that never took effect
		helpers.LogError(s.Logger, "recovery mail queued but password not updated", err, logrus.Fields{"user_id": u.ID})
		release()
		return false, err
	}
	recoveries.Add(1)

	// the old session dies with the old password
	if err := s.Logout(ctx, u.ID); err != nil {
		helpers.LogWarn(s.Logger, "drop session failed", err, logrus.Fields{"user_id": u.ID})
	}
	return true, nil
}

func mailOptions(meta RequestMeta) []tpl.Option {
	return []tpl.Option{
		tpl.WithTime(time.Now()),
		tpl.WithIP(meta.IP),
		tpl.WithUserAgent(meta.UserAgent),
	}
}

func (s *Service) mailEnabled() bool {
	return s.Mail != nil && s.Cfg != nil && s.Cfg.MailSendEnabled
}

// enqueue queues a best-effort notification; failures are only logged.
func (s *Service) enqueue(ctx context.Context, job mailer.EmailJob) {
	if !s.mailEnabled() {
		return
	}
	if err := s.Mail.PublishJSON(ctx, job); err != nil {
		helpers.LogError(s.Logger, "failed to publish email job", err, logrus.Fields{"template": job.Template})
		return
	}
	mailsQueued.Add(1)
}
