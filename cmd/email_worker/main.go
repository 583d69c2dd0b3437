package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/account-portal/config"
	"github.com/oksasatya/account-portal/pkg/helpers"
	"github.com/oksasatya/account-portal/pkg/mailer"
	mailtpl "github.com/oksasatya/account-portal/pkg/mailer/templates"
)

const (
	prefetch    = 16
	sendTimeout = 15 * time.Second
)

// outcome tells the consume loop what to do with a delivery.
type outcome int

const (
	ack outcome = iota
	drop
	requeue
)

var errNoRecipient = errors.New("job has no recipient")

// process decodes one job, renders it and hands it to sender.
// Malformed jobs are dropped; send failures are requeued.
func process(ctx context.Context, body []byte, sender mailer.Sender) (outcome, error) {
	var job mailer.EmailJob
	if err := json.Unmarshal(body, &job); err != nil {
		return drop, fmt.Errorf("bad message: %w", err)
	}
	if job.To == "" {
		return drop, errNoRecipient
	}
	helpers.NormalizeJob(&job)

	subject, text, html := job.Subject, job.Text, job.HTML
	if job.Template != "" {
		if !mailtpl.Known(job.Template) {
			return drop, fmt.Errorf("unknown template %q", job.Template)
		}
		s, t, h, err := mailtpl.Render(job.Template, job.Data)
		if err != nil {
			return drop, fmt.Errorf("render %s: %w", job.Template, err)
		}
		subject, text, html = s, t, h
		if subject == "" {
			subject = helpers.FallbackSubject(job.Template)
		}
	}

	sendCtx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()
	if err := sender.Send(sendCtx, job.To, subject, text, html); err != nil {
		return requeue, fmt.Errorf("send: %w", err)
	}
	return ack, nil
}

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	logger := helpers.NewLogger(cfg.AppName+"-email-worker", cfg.Env, nil)
	if !cfg.MailSendEnabled {
		logger.Info("MAIL_SEND_ENABLED=false; email worker disabled (no real emails will be sent)")
		return
	}
	if cfg.RabbitMQURL == "" || cfg.RabbitMQEmailQueue == "" {
		log.Fatal("RabbitMQ not configured")
	}
	if cfg.MailgunDomain == "" || cfg.MailgunAPIKey == "" || cfg.MailgunSender == "" {
		log.Fatal("Mailgun not configured")
	}

	consumer, err := helpers.NewRabbitConsumer(cfg.RabbitMQURL, cfg.RabbitMQEmailQueue, prefetch)
	if err != nil {
		log.Fatalf("amqp: %v", err)
	}
	defer consumer.Close()

	msgs, err := consumer.Deliveries(cfg.AppName + "-email-worker")
	if err != nil {
		log.Fatalf("consume: %v", err)
	}

	mg := mailer.NewMailgun(cfg.MailgunDomain, cfg.MailgunAPIKey, cfg.MailgunSender, cfg.MailgunAPIBase)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	done := make(chan struct{})

	go func() {
		defer close(done)
		for msg := range msgs {
			handle(ctx, logger, msg, mg)
		}
	}()

	logger.WithField("queue", cfg.RabbitMQEmailQueue).Info("email worker listening")
	<-stop
	logger.Info("shutting down...")
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
	}
}

func handle(ctx context.Context, logger *logrus.Logger, msg amqp.Delivery, sender mailer.Sender) {
	res, err := process(ctx, msg.Body, sender)
	fields := logrus.Fields{"message_id": msg.MessageId, "redelivered": msg.Redelivered}
	switch res {
	case ack:
		helpers.LogInfo(logger, "email delivered", fields)
		_ = msg.Ack(false)
	case drop:
		helpers.LogError(logger, "dropping email job", err, fields)
		_ = msg.Nack(false, false)
	case requeue:
		// one retry; a second failure is dropped
		if msg.Redelivered {
			helpers.LogError(logger, "email send failed again, dropping", err, fields)
			_ = msg.Nack(false, false)
			return
		}
		helpers.LogWarn(logger, "email send failed, requeueing", err, fields)
		_ = msg.Nack(false, true)
	}
}
