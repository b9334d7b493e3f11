package prompt

import "text/template"

// systemTemplateText is the generated default system entry. Characters with
// a hand-authored SystemPrompt bypass it entirely.
const systemTemplateText = `你正在扮演角色"{{.Name}}"。
{{- if .Description}}
角色描述：{{.Description}}
{{- end}}

请严格遵循以下规则：
1. 始终以第一人称说话，保持角色的语气和性格一致
2. 回复自然、简洁，长度控制在50到200字之间，避免列表式输出
3. 使用中文回复
4. 不要承认自己是AI或语言模型，始终停留在角色之中`

// memoryTemplateText is the digest appended to the system entry when a
// non-empty memory record exists for the (user, character) pair.
const memoryTemplateText = `

【关于这位用户的记忆】
你们已经交流过{{.TotalMessages}}条消息。
{{- if .Likes}}
用户喜欢：{{join .Likes "、"}}。
{{- end}}
{{- if .Dislikes}}
用户不喜欢：{{join .Dislikes "、"}}。
{{- end}}
请在对话中自然地体现这些记忆，不要生硬地罗列它们。`

var (
	systemTemplate = template.Must(template.New("system").Parse(systemTemplateText))
	memoryTemplate = template.Must(template.New("memory").Funcs(template.FuncMap{
		"join": joinStrings,
	}).Parse(memoryTemplateText))
)
