// Package blob talks to Azure Blob Storage through SAS URLs issued by the
// backend: conditional uploads for the upload engine and reads for previews.
package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	azblobblob "github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blockblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/container"

	"evidence-explorer/internal/model"
	"evidence-explorer/internal/upload"
	"evidence-explorer/internal/util"
	"evidence-explorer/pkg/apierror"
)

// Transport uploads and downloads blobs with SAS-scoped clients. A new client
// is built per call because every SAS URL carries its own signature.
type Transport struct {
	options azcore.ClientOptions
}

func NewTransport(options azcore.ClientOptions) *Transport {
	return &Transport{options: options}
}

// Upload writes src to destination in the container addressed by the SAS URL.
// Without overwrite the write is conditional on the blob not existing, and a
// blob that already exists is reported with code apierror.CodeConflict.
func (t *Transport) Upload(ctx context.Context, sas model.SasUploadInfo, src upload.Source, destination string, overwrite bool) error {
	client, err := container.NewClientWithNoCredential(sas.SasURL, &container.ClientOptions{ClientOptions: t.options})
	if err != nil {
		return apierror.New(apierror.CodeUpstream, "upload URL is not usable", err.Error(), http.StatusBadGateway)
	}

	body, err := src.Open()
	if err != nil {
		return fmt.Errorf("open %s: %w", src.Name(), err)
	}
	defer body.Close()

	options := &blockblob.UploadOptions{
		HTTPHeaders: &azblobblob.HTTPHeaders{
			BlobContentType: to.Ptr(util.ContentType(destination)),
		},
	}
	if !overwrite {
		options.AccessConditions = &azblobblob.AccessConditions{
			ModifiedAccessConditions: &azblobblob.ModifiedAccessConditions{
				IfNoneMatch: to.Ptr(azcore.ETagAny),
			},
		}
	}

	if _, err := client.NewBlockBlobClient(destination).Upload(ctx, body, options); err != nil {
		return mapError(destination, err)
	}

	return nil
}

// Open streams the blob behind a read SAS URL.
func (t *Transport) Open(ctx context.Context, readURL string) (io.ReadCloser, error) {
	client, err := azblobblob.NewClientWithNoCredential(readURL, &azblobblob.ClientOptions{ClientOptions: t.options})
	if err != nil {
		return nil, apierror.New(apierror.CodeUpstream, "read URL is not usable", err.Error(), http.StatusBadGateway)
	}

	resp, err := client.DownloadStream(ctx, nil)
	if err != nil {
		return nil, mapError(readURL, err)
	}

	return resp.Body, nil
}

func mapError(name string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	if bloberror.HasCode(err, bloberror.BlobAlreadyExists, bloberror.ConditionNotMet) {
		return apierror.New(apierror.CodeConflict, fmt.Sprintf("A file named %s already exists", name), "", http.StatusConflict)
	}

	var respErr *azcore.ResponseError
	if !errors.As(err, &respErr) {
		return apierror.New(apierror.CodeUpstreamUnavailable, "blob storage is unreachable: check the network connection and try again", err.Error(), http.StatusServiceUnavailable)
	}

	switch respErr.StatusCode {
	case http.StatusConflict, http.StatusPreconditionFailed:
		return apierror.New(apierror.CodeConflict, fmt.Sprintf("A file named %s already exists", name), respErr.ErrorCode, http.StatusConflict)
	case http.StatusForbidden:
		return apierror.New(apierror.CodeForbidden, "access to blob storage denied", respErr.ErrorCode, http.StatusForbidden)
	case http.StatusNotFound:
		return apierror.New(apierror.CodeNotFound, name+" was not found in blob storage", respErr.ErrorCode, http.StatusNotFound)
	default:
		message := respErr.ErrorCode
		if message == "" {
			message = http.StatusText(respErr.StatusCode)
		}
		return apierror.New(apierror.CodeUpstream, "blob storage rejected the request: "+message, "", http.StatusBadGateway)
	}
}
