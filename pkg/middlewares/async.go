package middlewares

import (
	"github.com/gin-gonic/gin"

	"github.com/studyhub-io/studyhub/pkg/utils"
)

// AsyncMiddleware 异步处理中间件
// 将请求的处理逻辑提交到 Worker Pool 中执行，而不是在 Gin 分配的 Goroutine 中直接执行。
// 这样可以严格控制并发处理的请求数量，防止系统过载。
func AsyncMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		// 如果没有初始化 Worker Pool，直接降级为同步执行
		if utils.GlobalWorkerPool == nil {
			c.Next()
			return
		}

		done := make(chan struct{})

		// gin.Context 不是线程安全的，但主 Goroutine 阻塞在 <-done，
		// 同一时间只有 Worker 在操作 c，所以是安全的
		task := func() {
			defer close(done)
			c.Next()
		}

		// 队列满时这里会阻塞，实现排队而不是拒绝
		utils.GlobalWorkerPool.Submit(task)

		<-done
	}
}
