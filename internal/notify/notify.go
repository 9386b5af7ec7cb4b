package notify

import (
	"fmt"
	"log"
	"net/smtp"
	"os"
	"strings"
	"time"

	"github.com/jordan-wright/email"

	"mspro-labs/weekly-shop/internal/config"
	"mspro-labs/weekly-shop/internal/report"
)

var logger = log.New(os.Stdout, "NOTIFY: ", log.LstdFlags|log.Lshortfile)

// Compose builds the subject and plain-text body for a finished shop.
func Compose(rep *report.Report, runErr error, now time.Time) (string, string) {
	var body strings.Builder
	missing := rep.Missing()

	subject := fmt.Sprintf("Weekly shop %s: basket complete", now.Format("Mon 2 Jan"))
	switch {
	case runErr != nil:
		subject = fmt.Sprintf("Weekly shop %s: FAILED", now.Format("Mon 2 Jan"))
		fmt.Fprintf(&body, "The shop stopped early: %v\n\n", runErr)
	case len(missing) > 0:
		subject = fmt.Sprintf("Weekly shop %s: %d item(s) missing", now.Format("Mon 2 Jan"), len(missing))
	}

	report.Render(&body, rep)
	if runErr == nil {
		body.WriteString("\nChoose a delivery slot and pay to finish the order.\n")
	}
	return subject, body.String()
}

// Send emails the report if notifications are configured. With OnlyMissing
// set, a complete and successful shop sends nothing.
func Send(cfg config.Notify, rep *report.Report, runErr error) error {
	if !cfg.Enabled() {
		return nil
	}
	if cfg.OnlyMissing && runErr == nil && rep.Reconciled && len(rep.Missing()) == 0 {
		logger.Println("Basket complete, no email sent")
		return nil
	}

	subject, body := Compose(rep, runErr, time.Now())

	mail := email.NewEmail()
	mail.From = fmt.Sprintf("Weekly Shop <%s>", cfg.EmailAddress)
	mail.To = cfg.To
	mail.Subject = subject
	mail.Text = []byte(body)

	addr := fmt.Sprintf("%s:%d", cfg.SMTPServer, cfg.SMTPPort)
	err := mail.Send(addr, smtp.PlainAuth("", cfg.EmailAddress, cfg.Password, cfg.SMTPServer))
	if err != nil && strings.Contains(err.Error(), "server doesn't support AUTH") {
		err = mail.Send(addr, nil)
	}
	if err != nil {
		return fmt.Errorf("failed to send report to %s: %w", strings.Join(cfg.To, ", "), err)
	}

	logger.Printf("Report sent to %s", strings.Join(cfg.To, ", "))
	return nil
}
