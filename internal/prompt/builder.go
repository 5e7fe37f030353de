// Package prompt turns user preferences into a generation request.
package prompt

import (
	"fmt"
	"strings"

	"vpnarch/internal/prefs"
)

// Temperature is fixed low for precise technical instructions.
const Temperature float32 = 0.3

// Request is everything the backend needs for one guide.
type Request struct {
	SystemInstruction string
	Prompt            string
	Temperature       float32
}

// systemInstruction fixes the backend's role and output rules.
const systemInstruction = `你是一位专业的网络安全工程师和系统管理员。
你的任务是提供一份详尽的、循序渐进的搭建安全 VPN 的技术指南。

请遵循以下规则：
1. 专注于隐私和安全的技术实现。
2. 提供服务器设置的实际 Shell 命令。
3. 解释关键配置文件（如 wg0.conf 或 server.conf）。
4. 包含客户端配置步骤。
5. 简洁但透彻。使用 Markdown 格式。
6. 包含简短的"先决条件"部分（例如：具有公网 IP 的 VPS）。
7. 添加关于遵守当地 VPN 使用法律的简短免责声明。
8. **输出内容必须使用中文。**`

// outline is the section list every guide follows, in order.
var outline = []string{
	"简介与先决条件",
	"服务器安装命令",
	"服务器配置（密钥生成、配置文件）",
	"防火墙/网络设置（UFW、IP 转发）",
	"针对 %s 的客户端配置",
	"验证与故障排除",
}

// Build derives the request for p. It is pure: the same preferences always
// yield a byte-identical request.
func Build(p prefs.Preferences) Request {
	var b strings.Builder

	b.WriteString("创建一个详细的 VPN 搭建指南，规格如下：\n")
	fmt.Fprintf(&b, "- 协议：%s\n", p.Protocol.Label())
	fmt.Fprintf(&b, "- 服务器操作系统：%s\n", p.ServerOS.Label())
	fmt.Fprintf(&b, "- 主要客户端设备：%s\n", p.ClientOS.Label())
	b.WriteString("\n指南结构需符合逻辑：\n")

	for i, section := range outline {
		if strings.Contains(section, "%s") {
			section = fmt.Sprintf(section, p.ClientOS.Label())
		}
		fmt.Fprintf(&b, "%d. %s\n", i+1, section)
	}

	return Request{
		SystemInstruction: systemInstruction,
		Prompt:            b.String(),
		Temperature:       Temperature,
	}
}
