// Package notify sends transactional mail for payment state changes.
// Everything here is best-effort: a failed mail never fails the payment
// flow that triggered it.
package notify

import (
	"context"
	"log/slog"
	"os"

	"plantbid.kr/app/internal/mailer"
	"plantbid.kr/app/internal/modules/payments"
	"plantbid.kr/app/internal/modules/users"
)

// UserDirectory resolves the recipient; *users.Service satisfies it.
type UserDirectory interface {
	GetByID(ctx context.Context, id string) (*users.User, error)
}

type Service struct {
	mail     mailer.Service
	users    UserDirectory
	logger   *slog.Logger
	from     string
	fromName string
}

func New(mail mailer.Service, userSv UserDirectory, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	from := os.Getenv("EMAIL_FROM")
	if from == "" {
		from = "no-reply@plantbid.kr"
	}
	fromName := os.Getenv("EMAIL_FROM_NAME")
	if fromName == "" {
		fromName = "플랜트비드"
	}
	return &Service{mail: mail, users: userSv, logger: logger, from: from, fromName: fromName}
}

func (s *Service) PaymentCancelled(ctx context.Context, p *payments.Payment, orderID, reason string) error {
	u, err := s.users.GetByID(ctx, p.UserID)
	if err != nil {
		return err
	}

	subject := "결제 취소 안내 - 플랜트비드"
	textBody := "안녕하세요 " + u.Name + "님,\n\n" +
		"주문하신 \"" + p.OrderName + "\"의 결제가 취소되었습니다.\n" +
		"주문번호: " + orderID + "\n" +
		"취소 사유: " + reason + "\n\n" +
		"환불은 결제 수단에 따라 3~5 영업일이 소요될 수 있습니다.\n"

	htmlBody := `
<html>
  <body style="font-family: sans-serif;">
    <h2>결제 취소 안내</h2>
    <p>안녕하세요 ` + u.Name + `님,</p>
    <p>주문하신 <strong>` + p.OrderName + `</strong>의 결제가 취소되었습니다.</p>
    <p><strong>주문번호:</strong> ` + orderID + `</p>
    <p><strong>취소 사유:</strong> ` + reason + `</p>
    <p>환불은 결제 수단에 따라 3~5 영업일이 소요될 수 있습니다.</p>
    <p>플랜트비드 드림</p>
  </body>
</html>
`

	return s.send(ctx, u.Email, subject, htmlBody, textBody)
}

func (s *Service) PaymentCompleted(ctx context.Context, p *payments.Payment) error {
	u, err := s.users.GetByID(ctx, p.UserID)
	if err != nil {
		return err
	}

	subject := "결제 완료 안내 - 플랜트비드"
	textBody := "안녕하세요 " + u.Name + "님,\n\n" +
		"\"" + p.OrderName + "\" 결제가 완료되었습니다.\n" +
		"주문번호: " + p.OrderID + "\n" +
		"결제금액: " + p.Amount + "원\n\n" +
		"판매자가 곧 배송을 준비합니다.\n"

	htmlBody := `
<html>
  <body style="font-family: sans-serif;">
    <h2>결제 완료 안내</h2>
    <p>안녕하세요 ` + u.Name + `님,</p>
    <p><strong>` + p.OrderName + `</strong> 결제가 완료되었습니다.</p>
    <p><strong>주문번호:</strong> ` + p.OrderID + `</p>
    <p><strong>결제금액:</strong> ` + p.Amount + `원</p>
    <p>판매자가 곧 배송을 준비합니다.</p>
    <p>플랜트비드 드림</p>
  </body>
</html>
`

	return s.send(ctx, u.Email, subject, htmlBody, textBody)
}

func (s *Service) send(ctx context.Context, to, subject, htmlBody, textBody string) error {
	return s.mail.Send(ctx, mailer.Email{
		FromName: s.fromName,
		From:     s.from,
		To:       []string{to},
		Subject:  subject,
		TextBody: textBody,
		HTMLBody: htmlBody,
	})
}
