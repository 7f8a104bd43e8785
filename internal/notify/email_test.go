package notify

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/wolfman30/leadintake/pkg/logging"
)

type fakeSendGrid struct {
	status int
	err    error
	last   *mail.SGMailV3
}

func (f *fakeSendGrid) SendWithContext(ctx context.Context, email *mail.SGMailV3) (*rest.Response, error) {
	f.last = email
	if f.err != nil {
		return nil, f.err
	}
	return &rest.Response{StatusCode: f.status, Body: "{}"}, nil
}

type fakeSES struct {
	err  error
	last *sesv2.SendEmailInput
}

func (f *fakeSES) SendEmail(ctx context.Context, in *sesv2.SendEmailInput, _ ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error) {
	f.last = in
	if f.err != nil {
		return nil, f.err
	}
	return &sesv2.SendEmailOutput{MessageId: aws.String("msg-1")}, nil
}

func TestNewSendGridSender_NilWithoutAPIKey(t *testing.T) {
	if sender := NewSendGridSender(SendGridConfig{FromEmail: "leads@example.com"}, logging.New("error")); sender != nil {
		t.Fatal("expected nil sender when API key is empty")
	}
}

func TestSendGridSender_DefaultsAndReplyTo(t *testing.T) {
	api := &fakeSendGrid{status: 202}
	sender := newSendGridSender(api, SendGridConfig{FromEmail: "leads@example.com"}, logging.New("error"))
	if sender.fromName != defaultFromName {
		t.Fatalf("expected default from name, got %q", sender.fromName)
	}

	err := sender.Send(context.Background(), EmailMessage{
		To:      "sales@example.com",
		ReplyTo: "jane@acme.test",
		Subject: "New lead",
		Body:    "hello",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if api.last == nil || api.last.Subject != "New lead" {
		t.Fatalf("expected message to be sent, got %#v", api.last)
	}
	if api.last.ReplyTo == nil || api.last.ReplyTo.Address != "jane@acme.test" {
		t.Fatalf("expected reply-to to be set, got %#v", api.last.ReplyTo)
	}
}

func TestSendGridSender_ErrorStatus(t *testing.T) {
	sender := newSendGridSender(&fakeSendGrid{status: 401}, SendGridConfig{}, logging.New("error"))
	if err := sender.Send(context.Background(), EmailMessage{To: "sales@example.com"}); err == nil {
		t.Fatal("expected error for 401 response")
	}

	sender = newSendGridSender(&fakeSendGrid{err: errors.New("dial tcp")}, SendGridConfig{}, logging.New("error"))
	if err := sender.Send(context.Background(), EmailMessage{To: "sales@example.com"}); err == nil {
		t.Fatal("expected transport error")
	}
}

func TestSendGridSender_NilReceiver(t *testing.T) {
	var sender *SendGridSender
	if err := sender.Send(context.Background(), EmailMessage{To: "x@example.com"}); err == nil {
		t.Fatal("expected error from unconfigured sender")
	}
}

func TestSESSender_BuildsInput(t *testing.T) {
	api := &fakeSES{}
	sender := newSESSender(api, SESConfig{FromEmail: "leads@example.com", FromName: "Leads"}, logging.New("error"))

	err := sender.Send(context.Background(), EmailMessage{
		To:      "sales@example.com",
		ReplyTo: "jane@acme.test",
		Subject: "New lead",
		Body:    "text",
		HTML:    "<p>html</p>",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	in := api.last
	if got := aws.ToString(in.FromEmailAddress); got != "Leads <leads@example.com>" {
		t.Fatalf("unexpected from address %q", got)
	}
	if in.Destination.ToAddresses[0] != "sales@example.com" {
		t.Fatalf("unexpected recipients %v", in.Destination.ToAddresses)
	}
	if aws.ToString(in.Content.Simple.Body.Html.Data) != "<p>html</p>" || aws.ToString(in.Content.Simple.Body.Text.Data) != "text" {
		t.Fatal("expected both text and html bodies")
	}
	if len(in.ReplyToAddresses) != 1 || in.ReplyToAddresses[0] != "jane@acme.test" {
		t.Fatalf("unexpected reply-to %v", in.ReplyToAddresses)
	}
}

func TestSESSender_Error(t *testing.T) {
	sender := newSESSender(&fakeSES{err: errors.New("throttled")}, SESConfig{}, logging.New("error"))
	if err := sender.Send(context.Background(), EmailMessage{To: "sales@example.com", Body: "x"}); err == nil {
		t.Fatal("expected error")
	}
}

func TestStubEmailSender_RecordsMessages(t *testing.T) {
	stub := NewStubEmailSender(logging.New("error"))
	_ = stub.Send(context.Background(), EmailMessage{To: "a@example.com", Subject: "one"})
	_ = stub.Send(context.Background(), EmailMessage{To: "b@example.com", Subject: "two"})
	sent := stub.Sent()
	if len(sent) != 2 || sent[1].Subject != "two" {
		t.Fatalf("unexpected captured messages: %#v", sent)
	}
}
