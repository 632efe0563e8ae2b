package repo

import (
	"fmt"

	"phishsim/entity"
	"phishsim/pkg/goutil"
)

func ToPagination(p *entity.Pagination) *Pagination {
	if p == nil {
		return nil
	}
	return &Pagination{
		Page:  p.Page,
		Limit: p.Limit,
	}
}

func ToEntityPagination(p *Pagination) *entity.Pagination {
	if p == nil {
		return nil
	}
	return &entity.Pagination{
		Page:    p.Page,
		Limit:   p.Limit,
		HasNext: p.HasNext,
		Total:   p.Total,
	}
}

type LogicalOp string

const (
	And LogicalOp = "AND"
	Or  LogicalOp = "OR"
)

type Op string

const (
	OpEq    Op = "="
	OpNotEq Op = "!="
	OpGt    Op = ">"
	OpGte   Op = ">="
	OpLt    Op = "<"
	OpLte   Op = "<="
	OpLike  Op = "LIKE"
	OpIn    Op = "IN"
)

type Condition struct {
	Field         string
	Op            Op
	Value         interface{}
	NextLogicalOp LogicalOp
}

type Pagination struct {
	Page    *uint32
	Limit   *uint32
	HasNext *bool
	Total   *uint32
}

func (p *Pagination) GetPage() uint32 {
	if p != nil && p.Page != nil {
		return *p.Page
	}
	return 0
}

func (p *Pagination) GetLimit() uint32 {
	if p != nil && p.Limit != nil {
		return *p.Limit
	}
	return 0
}

func (p *Pagination) GetHasNext() bool {
	if p != nil && p.HasNext != nil {
		return *p.HasNext
	}
	return false
}

func (p *Pagination) GetTotal() uint32 {
	if p != nil && p.Total != nil {
		return *p.Total
	}
	return 0
}

type Filter struct {
	Conditions []*Condition
	Pagination *Pagination
}

func ToSqlWithArgs(f *Filter) (sql string, args []interface{}) {
	if f == nil {
		return
	}

	var lastLogicalOp LogicalOp

	for _, condition := range f.Conditions {
		if goutil.IsNil(condition.Value) {
			continue
		}

		var clause string
		switch condition.Op {
		case OpEq, OpNotEq, OpGt, OpGte, OpLt, OpLte, OpLike:
			clause = fmt.Sprintf("%s %s ?", condition.Field, condition.Op)
		case OpIn:
			clause = fmt.Sprintf("%s IN ?", condition.Field)
		default:
			continue
		}

		if sql != "" {
			logicalOp := lastLogicalOp
			if logicalOp == "" {
				logicalOp = And
			}
			sql += fmt.Sprintf(" %s ", logicalOp)
		}

		sql += clause
		args = append(args, condition.Value)
		lastLogicalOp = condition.NextLogicalOp
	}

	return
}
