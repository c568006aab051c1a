// 包 geo：网格点、扇区与相交结果的基础数据结构，以及两类输入错误
package geo

import "github.com/pkg/errors"

// 错误种类：调用方用 errors.Is 判定后决定中止流水线或跳过该条目
// 约束：两类错误均源于非法输入，不做重试
var (
	// 多边形为空/未闭合/面积非正，或坐标投影失败
	ErrInvalidGeometry = errors.New("invalid geometry")
	// 半径/张角/细分数/方位角越界
	ErrInvalidParameters = errors.New("invalid parameters")
)
