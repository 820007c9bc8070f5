// Package port 定义工作流层对外部能力的抽象接口。
package port

import (
	"context"

	"github.com/cloudwego/eino/components/model"
)

// ChatModelFactory 按提供商名称获取聊天模型实例。
// 名称为空时返回默认提供商的模型。
type ChatModelFactory interface {
	Get(ctx context.Context, name string) (model.BaseChatModel, error)
}
