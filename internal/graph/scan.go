package graph

import (
	"database/sql"
	"encoding/json"

	"github.com/graphvault/core/internal/coreerr"
	"github.com/graphvault/core/internal/types"
)

type scanner interface {
	Scan(...any) error
}

func scanEntityRow(s scanner) (*types.Row, error) {
	r := &types.Row{Kind: types.KindEntity}
	var propsJSON string
	var prevID sql.NullString
	var aclID sql.NullInt64
	var isDeleted, isLatest int

	if err := s.Scan(&r.ID, &r.TypeID, &propsJSON, &r.Version, &prevID, &r.CreatedAt, &r.CreatedBy, &isDeleted, &isLatest, &aclID); err != nil {
		return nil, err
	}
	return finishRow(r, propsJSON, prevID, aclID, isDeleted, isLatest)
}

func scanLinkRow(s scanner) (*types.Row, error) {
	r := &types.Row{Kind: types.KindLink}
	var propsJSON string
	var prevID sql.NullString
	var aclID sql.NullInt64
	var isDeleted, isLatest int

	if err := s.Scan(&r.ID, &r.TypeID, &propsJSON, &r.Version, &prevID, &r.CreatedAt, &r.CreatedBy, &isDeleted, &isLatest, &aclID, &r.SourceEntityID, &r.TargetEntityID); err != nil {
		return nil, err
	}
	return finishRow(r, propsJSON, prevID, aclID, isDeleted, isLatest)
}

func finishRow(r *types.Row, propsJSON string, prevID sql.NullString, aclID sql.NullInt64, isDeleted, isLatest int) (*types.Row, error) {
	r.PreviousVersionID = prevID.String
	r.IsDeleted = isDeleted != 0
	r.IsLatest = isLatest != 0
	if aclID.Valid {
		id := aclID.Int64
		r.ACLID = &id
	}
	if propsJSON == "" {
		r.Properties = types.Properties{}
	} else if err := json.Unmarshal([]byte(propsJSON), &r.Properties); err != nil {
		return nil, coreerr.Internal(err, "decode properties for %s", r.ID)
	}
	return r, nil
}
