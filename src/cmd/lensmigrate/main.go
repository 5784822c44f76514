package main

import (
	"os"
	"time"

	lenssentry "github.com/lensapp/storemigrate/src/pkg/sentry"
)

func main() {
	code := func() (code int) {
		// panic 时保持非零退出码
		code = 1
		// 程序退出时刷新 Sentry 事件队列
		defer lenssentry.Flush(2 * time.Second)
		defer lenssentry.Recover()
		code = newApp(os.Stdout, os.Stderr).run(os.Args[1:])
		return code
	}()
	os.Exit(code)
}
