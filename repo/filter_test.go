package repo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToSqlWithArgs(t *testing.T) {
	tests := []struct {
		name     string
		filter   *Filter
		wantSql  string
		wantArgs []interface{}
	}{
		{
			name:    "nil filter",
			filter:  nil,
			wantSql: "",
		},
		{
			name: "single condition",
			filter: &Filter{
				Conditions: []*Condition{
					{Field: "id", Value: uint64(7), Op: OpEq},
				},
			},
			wantSql:  "id = ?",
			wantArgs: []interface{}{uint64(7)},
		},
		{
			name: "default and",
			filter: &Filter{
				Conditions: []*Condition{
					{Field: "scheduled_at", Value: uint64(100), Op: OpLte},
					{Field: "status", Value: []uint32{1, 2}, Op: OpIn},
				},
			},
			wantSql:  "scheduled_at <= ? AND status IN ?",
			wantArgs: []interface{}{uint64(100), []uint32{1, 2}},
		},
		{
			name: "explicit or",
			filter: &Filter{
				Conditions: []*Condition{
					{Field: "opened", Value: true, Op: OpEq, NextLogicalOp: Or},
					{Field: "clicked", Value: true, Op: OpEq},
				},
			},
			wantSql:  "opened = ? OR clicked = ?",
			wantArgs: []interface{}{true, true},
		},
		{
			name: "nil value skipped",
			filter: &Filter{
				Conditions: []*Condition{
					{Field: "id", Value: uint64(7), Op: OpEq},
					{Field: "name", Value: nil, Op: OpEq},
				},
			},
			wantSql:  "id = ?",
			wantArgs: []interface{}{uint64(7)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sql, args := ToSqlWithArgs(tt.filter)
			assert.Equal(t, tt.wantSql, sql)
			assert.Equal(t, tt.wantArgs, args)
		})
	}
}
