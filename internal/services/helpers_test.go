package services

import (
	"context"

	"github.com/google/uuid"

	"github.com/labtrace/labtrace-backend/internal/requestdata"
)

func ctxAs(userID, workspaceID uuid.UUID, role string) context.Context {
	return requestdata.WithRequestData(context.Background(), &requestdata.RequestData{
		UserID:      userID,
		WorkspaceID: workspaceID,
		Role:        role,
	})
}
