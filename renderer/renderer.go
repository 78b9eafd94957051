package renderer

import "github.com/ByLCY/chordline/layout"

// Renderer 将排版结果输出为最终文件，例如 PDF 或终端文本。
// Render 返回生成的二进制数据（例如 PDF 字节切片）以及可能的错误。
type Renderer interface {
	Render(result *layout.Result) ([]byte, error)
}

// Backend 是既能测量、重排又能绘制的完整后端：同一套字体度量贯穿排版与输出。
type Backend interface {
	Renderer
	layout.Measurer
	layout.Typesetter
	// Extension 返回输出文件的默认扩展名（含点号）。
	Extension() string
}
