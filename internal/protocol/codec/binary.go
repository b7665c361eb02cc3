package codec

import (
	"encoding/json"
	"fmt"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/palemoky/old-maid/internal/protocol"
)

const (
	fieldType    = "type"
	fieldPayload = "payload"
)

// EncodeBinary 将消息编码为 Protobuf 二进制帧（structpb.Struct 信封）
func EncodeBinary(m *protocol.Message) ([]byte, error) {
	fields := map[string]*structpb.Value{
		fieldType: structpb.NewStringValue(string(m.Type)),
	}

	if len(m.Payload) > 0 {
		var raw any
		if err := json.Unmarshal(m.Payload, &raw); err != nil {
			return nil, fmt.Errorf("解析 payload 失败: %w", err)
		}
		v, err := structpb.NewValue(raw)
		if err != nil {
			return nil, fmt.Errorf("转换 payload 失败: %w", err)
		}
		fields[fieldPayload] = v
	}

	return proto.Marshal(&structpb.Struct{Fields: fields})
}

// DecodeBinary 从 Protobuf 二进制帧解码消息
// 注意: 使用完毕后应调用 PutMessage 归还对象到池
func DecodeBinary(data []byte) (*protocol.Message, error) {
	var envelope structpb.Struct
	if err := proto.Unmarshal(data, &envelope); err != nil {
		return nil, err
	}

	msgType := envelope.GetFields()[fieldType].GetStringValue()
	if msgType == "" {
		return nil, fmt.Errorf("缺少消息类型")
	}

	msg := GetMessage()
	msg.Type = protocol.MessageType(msgType)

	if v, ok := envelope.GetFields()[fieldPayload]; ok {
		payload, err := json.Marshal(v.AsInterface())
		if err != nil {
			PutMessage(msg)
			return nil, err
		}
		msg.Payload = payload
	}
	return msg, nil
}
