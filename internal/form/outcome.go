package form

import (
	"errors"

	"account_listing_bot/internal/model"
)

// ErrInputRejected 字段校验未通过，可由用户重新输入恢复
var ErrInputRejected = errors.New("input rejected")

// OutcomeKind 处理结果类型
type OutcomeKind int

const (
	// OutcomeRejected 输入不合法，子状态保持，重新提示
	OutcomeRejected OutcomeKind = iota + 1
	// OutcomeAccepted 写入字段并清除子状态
	OutcomeAccepted
	// OutcomeContinuation 清除当前子状态并激活 Next
	OutcomeContinuation
	// OutcomeCancelled 显式返回，清除子状态且不写入
	OutcomeCancelled
	// OutcomePending 已消费输入，子状态保持（图片未满、级联进入下一级）
	OutcomePending
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeRejected:
		return "rejected"
	case OutcomeAccepted:
		return "accepted"
	case OutcomeContinuation:
		return "continuation"
	case OutcomeCancelled:
		return "cancelled"
	case OutcomePending:
		return "pending"
	default:
		return "unknown"
	}
}

// Outcome 子状态处理一次输入的结果
type Outcome struct {
	Kind    OutcomeKind
	Field   model.Field
	Value   interface{}
	Extra   map[model.Field]interface{} // 与 Field 一起写入的附加字段
	Next    SubState
	Message string
}

// Writes 需要写入表单的全部字段
func (o Outcome) Writes() map[model.Field]interface{} {
	if o.Field == "" && len(o.Extra) == 0 {
		return nil
	}
	out := make(map[model.Field]interface{}, len(o.Extra)+1)
	if o.Field != "" {
		out[o.Field] = o.Value
	}
	for k, v := range o.Extra {
		out[k] = v
	}
	return out
}

// Err 拒绝时返回 ErrInputRejected，其余为 nil
func (o Outcome) Err() error {
	if o.Kind == OutcomeRejected {
		return ErrInputRejected
	}
	return nil
}

func Rejected(message string) Outcome {
	return Outcome{Kind: OutcomeRejected, Message: message}
}

func Accepted(field model.Field, value interface{}, message string) Outcome {
	return Outcome{Kind: OutcomeAccepted, Field: field, Value: value, Message: message}
}

func Continuation(field model.Field, value interface{}, next SubState, message string) Outcome {
	return Outcome{Kind: OutcomeContinuation, Field: field, Value: value, Next: next, Message: message}
}

func Cancelled(message string) Outcome {
	return Outcome{Kind: OutcomeCancelled, Message: message}
}

func Pending(message string) Outcome {
	return Outcome{Kind: OutcomePending, Message: message}
}
