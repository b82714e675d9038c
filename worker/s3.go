package worker

import (
	"context"
	"phenotips.org/pedigree/s3client"
)

const contentTypeSVG = "image/svg+xml"

type s3Transactions interface {
	saveResultsFile(ctx context.Context, task *Task, result []byte) error
	saveImage(ctx context.Context, task *Task, image string) error
	close()
}

type s3ClientWrapper struct {
	s3Client *s3client.Client
}

func (wrapper *s3ClientWrapper) close() {
	wrapper.s3Client.Close()
}

func (wrapper *s3ClientWrapper) saveResultsFile(ctx context.Context, task *Task, result []byte) error {
	_, err := wrapper.s3Client.Upload(ctx, result, getResultsFileKey(task), s3client.ContentTypeJSON)
	return err
}

func (wrapper *s3ClientWrapper) saveImage(ctx context.Context, task *Task, image string) error {
	_, err := wrapper.s3Client.Upload(ctx, []byte(image), getImageFileKey(task), contentTypeSVG)
	return err
}
