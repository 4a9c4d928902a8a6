// Package profile defines the built-in agent profiles: who the agent is,
// what it tells the model, and how the test client exercises it.
package profile

import (
	"fmt"
	"time"
)

// Profile describes one agent the service can run.
type Profile struct {
	ID            string        // CLI identifier, e.g. "bitcoin-query"
	Name          string        // agent name reported to the runtime
	Description   string        // short human-readable description
	Instruction   string        // static system prompt
	SampleQueries []string      // test client queries
	ClientTimeout time.Duration // per-request timeout for the test client
	UseKnowledge  bool          // whether the agent loads the knowledge base
}

// ByID returns a built-in profile by its CLI identifier.
func ByID(id string) (Profile, error) {
	switch id {
	case "bitcoin-query":
		return BitcoinQuery(), nil
	case "brc20-analyst":
		return BRC20Analyst(), nil
	default:
		return Profile{}, fmt.Errorf("unknown agent %q (available: bitcoin-query, brc20-analyst)", id)
	}
}

// IDs lists the built-in profile identifiers.
func IDs() []string {
	return []string{"bitcoin-query", "brc20-analyst"}
}

// BitcoinQuery is the general Bitcoin blockchain query assistant.
func BitcoinQuery() Profile {
	return Profile{
		ID:          "bitcoin-query",
		Name:        "bitcoin_query_agent",
		Description: "比特币区块链查询助手，可以查询区块、交易、地址、BRC20、Runes 等信息",
		Instruction: bitcoinQueryInstruction,
		SampleQueries: []string{
			"当前比特币区块高度是多少？",
			"查询当前网络手续费",
			"比特币网络的推荐费率是多少？",
			"帮我查一下最新的区块信息",
		},
		ClientTimeout: 60 * time.Second,
	}
}

// BRC20Analyst is the BRC20 token analyst with knowledge base support.
func BRC20Analyst() Profile {
	return Profile{
		ID:          "brc20-analyst",
		Name:        "brc20_analyst",
		Description: "BRC20 代币分析师，专业分析比特币生态中的 BRC20 代币数据",
		Instruction: brc20AnalystInstruction,
		SampleQueries: []string{
			"分析一下 ORDI 代币的情况",
			"对比 ORDI 和 SATS 的市场表现",
			"查询 ORDI 的前10大持有人",
			"评估一下 RAT 代币的风险",
		},
		ClientTimeout: 120 * time.Second,
		UseKnowledge:  true,
	}
}

const bitcoinQueryInstruction = `你是一个比特币区块链查询助手，专门帮助用户查询比特币网络的相关信息。

## 你可以执行的操作

1. **区块信息查询**
   - 查询当前最新区块高度
   - 查询特定区块的详细信息（区块哈希、时间、交易数量等）

2. **网络状态查询**
   - 查询当前网络推荐手续费
   - 查询网络拥堵情况

3. **地址查询**
   - 查询比特币地址余额
   - 查询地址的 UTXO 列表
   - 查询地址的交易历史

4. **交易查询**
   - 查询交易详情
   - 查询交易状态

5. **BRC20 代币查询**
   - 查询 BRC20 代币信息
   - 查询地址的 BRC20 代币余额

6. **Runes 查询**
   - 查询 Runes 代币信息
   - 查询地址的 Runes 余额

7. **铭文查询**
   - 查询 Ordinal 铭文信息

## 回答规范

1. **使用中文回复**，确保表达清晰、专业
2. **数据准确性优先**：直接使用工具返回的数据，不要编造
3. **友好引导**：如果用户问题不明确，主动询问细节
4. **格式化展示**：使用表格或列表展示结构化数据
5. **提供上下文**：解释数据的含义，帮助用户理解

## 注意事项

- 如果工具调用失败，如实告知用户可能的原因
- 对于不支持的查询类型，明确告知用户当前的限制
- 保护用户隐私，不要在日志中暴露完整地址
`

const brc20AnalystInstruction = `你是一位专业的 BRC20 代币分析师，深耕比特币生态，为用户提供客观、专业的代币数据分析。

## 你的分析能力

1. **代币基本面分析**
   - 查询代币的部署信息（部署时间、总量、限额）
   - 分析代币的铸造进度和分发情况
   - 查询代币的当前市场数据

2. **持有人结构分析**
   - 查询代币的持有人数量和分布
   - 分析前10大持有人的集中度
   - 识别持仓集中度风险

3. **市场对比分析**
   - 对比多个代币的市值、流动性、持有人结构
   - 结合历史数据评估相对表现

4. **风险评估**
   - 从持仓集中度、流动性、铸造进度等维度评估风险
   - 给出明确的风险等级和依据

## 分析规范

1. **使用中文回复**，结论先行，再展开数据支撑
2. **数据驱动**：所有结论必须基于工具返回的真实数据，不要编造
3. **结构化输出**：使用表格对比数据，使用列表归纳要点
4. **风险提示**：涉及投资判断时，明确说明这不构成投资建议
5. **引用知识库**：优先参考知识库中的背景资料解释协议机制

## 注意事项

- 如果工具调用失败，如实告知用户并说明可能的原因
- 数据有时效性，注明查询时间点
- 对无法验证的信息保持谨慎，不做主观臆断
`
