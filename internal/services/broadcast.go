package services

import "fmt"

// Broadcaster 把事件推送到订阅了某个目的地的在线连接。
// 实现见 pkg/ws.Hub；服务层只依赖这个最小接口，测试用桩实现
type Broadcaster interface {
	Publish(destination string, payload any)
}

// GroupDestination 群组消息目的地
func GroupDestination(groupID uint) string {
	return fmt.Sprintf("group/%d", groupID)
}

// UserQueueDestination 用户私有通知队列目的地
func UserQueueDestination(userID uint) string {
	return fmt.Sprintf("user-queue/%d", userID)
}

// NopBroadcaster 空实现，离线模式与测试用
type NopBroadcaster struct{}

func (NopBroadcaster) Publish(string, any) {}
