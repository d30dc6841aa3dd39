// Package marketplace 众包平台（Prolific 风格）的状态词汇表与状态映射
//
// 平台有两套相互独立的状态机：
//   - Study：平台上发布的一次任务执行（对应本地 TaskRun）
//   - Submission：单个工人的一次作答（对应本地 Assignment）
//
// 本包只负责读取和校验：枚举的解析、合法迁移判断、与本地 Assignment 状态的映射，
// 以及 study URL 中身份占位符的替换。状态迁移由平台触发，通过轮询观察（不在本包范围内）。
//
// 所有枚举都是封闭的 uint8 常量，wire 字符串集中在查找表中；
// 新增平台状态时，所有 switch 处都需要同步修改。
package marketplace
