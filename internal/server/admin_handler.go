// Package server provides Connect RPC handlers for administering the offline data layer.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"connectrpc.com/connect"
	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/at-ishikawa/quizsync/internal/cacheproxy"
	"github.com/at-ishikawa/quizsync/internal/localstore"
)

const (
	AdminServiceName = "quizsync.admin.v1.AdminService"

	PostMessageProcedure          = "/" + AdminServiceName + "/PostMessage"
	ListInstalledClassesProcedure = "/" + AdminServiceName + "/ListInstalledClasses"
	GetStorageUsageProcedure      = "/" + AdminServiceName + "/GetStorageUsage"
)

// MessageHandler receives commands for the cache layer.
type MessageHandler interface {
	HandleMessage(ctx context.Context, msg cacheproxy.Message) error
}

// ClassStore is the part of the local store the admin service reads.
type ClassStore interface {
	GetInstalledClasses(ctx context.Context) ([]string, error)
	EstimateUsage(ctx context.Context) (*localstore.Usage, error)
}

// AdminHandler serves the admin RPCs.
type AdminHandler struct {
	messages MessageHandler
	store    ClassStore
}

func NewAdminHandler(messages MessageHandler, store ClassStore) *AdminHandler {
	return &AdminHandler{messages: messages, store: store}
}

// PostMessage delivers a {type: ...} command to the cache layer.
func (h *AdminHandler) PostMessage(
	ctx context.Context,
	req *connect.Request[structpb.Struct],
) (*connect.Response[emptypb.Empty], error) {
	msgType := req.Msg.GetFields()["type"].GetStringValue()
	if msgType == "" {
		return nil, invalidMessage(msgType, errors.New("message type is required"))
	}

	err := h.messages.HandleMessage(ctx, cacheproxy.Message{Type: msgType})
	if errors.Is(err, cacheproxy.ErrUnknownMessage) {
		return nil, invalidMessage(msgType, err)
	}
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, fmt.Errorf("handle message(%s): %w", msgType, err))
	}
	return connect.NewResponse(&emptypb.Empty{}), nil
}

// ListInstalledClasses returns the ids of the classes available offline.
func (h *AdminHandler) ListInstalledClasses(
	ctx context.Context,
	_ *connect.Request[emptypb.Empty],
) (*connect.Response[structpb.ListValue], error) {
	classIDs, err := h.store.GetInstalledClasses(ctx)
	if err != nil {
		return nil, connect.NewError(connect.CodeUnavailable, fmt.Errorf("get installed classes: %w", err))
	}

	values := make([]any, 0, len(classIDs))
	for _, id := range classIDs {
		values = append(values, id)
	}
	list, err := structpb.NewList(values)
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, fmt.Errorf("build class list: %w", err))
	}
	return connect.NewResponse(list), nil
}

// GetStorageUsage returns {usedBytes, quotaBytes} of the local store.
func (h *AdminHandler) GetStorageUsage(
	ctx context.Context,
	_ *connect.Request[emptypb.Empty],
) (*connect.Response[structpb.Struct], error) {
	usage, err := h.store.EstimateUsage(ctx)
	if err != nil {
		return nil, connect.NewError(connect.CodeUnavailable, fmt.Errorf("estimate usage: %w", err))
	}
	if usage == nil {
		return nil, connect.NewError(connect.CodeNotFound, errors.New("storage usage is not available"))
	}

	result, err := structpb.NewStruct(map[string]any{
		"usedBytes":  usage.UsedBytes,
		"quotaBytes": usage.QuotaBytes,
	})
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, fmt.Errorf("build usage: %w", err))
	}
	return connect.NewResponse(result), nil
}

// Mount registers every admin procedure on mux.
func (h *AdminHandler) Mount(mux *http.ServeMux, opts ...connect.HandlerOption) {
	mux.Handle(PostMessageProcedure, connect.NewUnaryHandler(PostMessageProcedure, h.PostMessage, opts...))
	mux.Handle(ListInstalledClassesProcedure, connect.NewUnaryHandler(ListInstalledClassesProcedure, h.ListInstalledClasses, opts...))
	mux.Handle(GetStorageUsageProcedure, connect.NewUnaryHandler(GetStorageUsageProcedure, h.GetStorageUsage, opts...))
}

func invalidMessage(msgType string, err error) *connect.Error {
	connectErr := connect.NewError(connect.CodeInvalidArgument, err)
	if detail, detailErr := connect.NewErrorDetail(&errdetails.ErrorInfo{
		Reason:   "UNKNOWN_MESSAGE_TYPE",
		Domain:   "quizsync",
		Metadata: map[string]string{"type": msgType},
	}); detailErr == nil {
		connectErr.AddDetail(detail)
	}
	if detail, detailErr := connect.NewErrorDetail(&errdetails.BadRequest{
		FieldViolations: []*errdetails.BadRequest_FieldViolation{
			{Field: "type", Description: err.Error()},
		},
	}); detailErr == nil {
		connectErr.AddDetail(detail)
	}
	return connectErr
}
