package main

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"

	"tenant-validation/internal/queue"
	"tenant-validation/internal/shared/auth"
	"tenant-validation/internal/validation"
)

type fakeSQS struct {
	deleted []string
}

func (f *fakeSQS) ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error) {
	return &sqs.ReceiveMessageOutput{}, nil
}

func (f *fakeSQS) DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error) {
	f.deleted = append(f.deleted, aws.ToString(params.ReceiptHandle))
	return &sqs.DeleteMessageOutput{}, nil
}

type fakeRunner struct {
	err   error
	calls int
}

func (f *fakeRunner) RunCategories(ctx context.Context, actor auth.Actor, ownerID string, categories []validation.Category) ([]validation.Record, error) {
	f.calls++
	return nil, f.err
}

func sqsMessage(t *testing.T, id string, msg queue.Message) sqstypes.Message {
	t.Helper()
	body, err := queue.EncodeMessage(msg)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	return sqstypes.Message{
		MessageId:     aws.String(id),
		ReceiptHandle: aws.String("r-" + id),
		Body:          aws.String(string(body)),
		Attributes:    map[string]string{"ApproximateReceiveCount": "1"},
	}
}

func TestWorkerDeletesMessageOnSuccess(t *testing.T) {
	client := &fakeSQS{}
	runner := &fakeRunner{}

	handleMessage(context.Background(), client, "queue", runner, sqsMessage(t, "m1", queue.Message{OwnerID: "o1", RequestID: "req-1"}))

	if runner.calls != 1 || len(client.deleted) != 1 || client.deleted[0] != "r-m1" {
		t.Fatalf("expected one run and delete, got calls=%d deleted=%v", runner.calls, client.deleted)
	}
}

func TestWorkerKeepsMessageOnTransientFailure(t *testing.T) {
	client := &fakeSQS{}
	runner := &fakeRunner{err: errors.New("textract throttled")}

	handleMessage(context.Background(), client, "queue", runner, sqsMessage(t, "m2", queue.Message{OwnerID: "o1"}))

	if len(client.deleted) != 0 {
		t.Fatalf("expected no delete, got %v", client.deleted)
	}
}

func TestWorkerDropsUnrecoverableMessages(t *testing.T) {
	tests := []struct {
		name   string
		msg    sqstypes.Message
		runErr error
	}{
		{"invalid json", sqstypes.Message{MessageId: aws.String("m3"), ReceiptHandle: aws.String("r3"), Body: aws.String("{bad-json")}, nil},
		{"empty body", sqstypes.Message{MessageId: aws.String("m4"), ReceiptHandle: aws.String("r4"), Body: aws.String("")}, nil},
		{"unknown owner", sqsMessage(t, "m5", queue.Message{OwnerID: "ghost"}), validation.ErrOwnerNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &fakeSQS{}
			handleMessage(context.Background(), client, "queue", &fakeRunner{err: tt.runErr}, tt.msg)
			if len(client.deleted) != 1 {
				t.Fatalf("expected delete, got %d", len(client.deleted))
			}
		})
	}
}

func TestReceiveCount(t *testing.T) {
	if got := receiveCount(sqstypes.Message{}); got != 0 {
		t.Fatalf("expected 0, got %d", got)
	}
	if got := receiveCount(sqstypes.Message{Attributes: map[string]string{"ApproximateReceiveCount": "3"}}); got != 3 {
		t.Fatalf("expected 3, got %d", got)
	}
}
